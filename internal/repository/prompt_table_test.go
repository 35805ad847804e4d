package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	pages   []*dynamodb.ScanOutput
	scanErr error
	inputs  []*dynamodb.ScanInput
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	idx := len(f.inputs) - 1
	if idx >= len(f.pages) {
		return &dynamodb.ScanOutput{}, nil
	}
	return f.pages[idx], nil
}

func makeItem(id, prompt string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID:     &types.AttributeValueMemberS{Value: id},
		attrPrompt: &types.AttributeValueMemberS{Value: prompt},
	}
}

func mustNew(t *testing.T, db *fakeDynamo) *PromptTable {
	t.Helper()
	p, err := New(db, "prompts")
	require.NoError(t, err)
	return p
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, "prompts")
	require.ErrorContains(t, err, "nil")

	_, err = New(&fakeDynamo{}, " ")
	require.ErrorContains(t, err, "table name")
}

func TestListPrompts_SinglePage(t *testing.T) {
	db := &fakeDynamo{pages: []*dynamodb.ScanOutput{{
		Items: []map[string]types.AttributeValue{
			makeItem("pmpt_a", "Be brief."),
			makeItem("pmpt_b", "Be kind."),
		},
	}}}

	got, err := mustNew(t, db).ListPrompts(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]string{"pmpt_a": "Be brief.", "pmpt_b": "Be kind."}, got)
	require.Len(t, db.inputs, 1)
	require.Equal(t, "prompts", *db.inputs[0].TableName)
	require.Nil(t, db.inputs[0].ExclusiveStartKey)
}

func TestListPrompts_FollowsPagination(t *testing.T) {
	lastKey := map[string]types.AttributeValue{attrID: &types.AttributeValueMemberS{Value: "pmpt_a"}}
	db := &fakeDynamo{pages: []*dynamodb.ScanOutput{
		{Items: []map[string]types.AttributeValue{makeItem("pmpt_a", "one")}, LastEvaluatedKey: lastKey},
		{Items: []map[string]types.AttributeValue{makeItem("pmpt_b", "two")}},
	}}

	got, err := mustNew(t, db).ListPrompts(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]string{"pmpt_a": "one", "pmpt_b": "two"}, got)
	require.Len(t, db.inputs, 2)
	require.Equal(t, lastKey, db.inputs[1].ExclusiveStartKey)
}

func TestListPrompts_EmptyTable(t *testing.T) {
	got, err := mustNew(t, &fakeDynamo{}).ListPrompts(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestListPrompts_ScanError(t *testing.T) {
	_, err := mustNew(t, &fakeDynamo{scanErr: errors.New("boom")}).ListPrompts(context.Background())
	require.ErrorContains(t, err, "boom")
	require.ErrorContains(t, err, "ListPrompts scan")
}

func TestListPrompts_MalformedItem(t *testing.T) {
	cases := []struct {
		name string
		item map[string]types.AttributeValue
		want string
	}{
		{
			name: "missing prompt",
			item: map[string]types.AttributeValue{attrID: &types.AttributeValueMemberS{Value: "pmpt_a"}},
			want: `missing attribute "prompt"`,
		},
		{
			name: "numeric id",
			item: map[string]types.AttributeValue{
				attrID:     &types.AttributeValueMemberN{Value: "7"},
				attrPrompt: &types.AttributeValueMemberS{Value: "x"},
			},
			want: `attribute "id" is not a string`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := &fakeDynamo{pages: []*dynamodb.ScanOutput{{Items: []map[string]types.AttributeValue{tc.item}}}}
			_, err := mustNew(t, db).ListPrompts(context.Background())
			require.ErrorContains(t, err, tc.want)
		})
	}
}
