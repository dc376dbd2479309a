package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

func TestMemoryRecipeState(t *testing.T) {
	ctx := context.Background()

	t.Run("empty state is not found", func(t *testing.T) {
		_, err := NewMemoryRecipeState(nil).Load(ctx)
		should.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save then load returns a copy", func(t *testing.T) {
		state := NewMemoryRecipeState(nil)
		data := []byte(`[]`)
		must.NoError(t, state.Save(ctx, data))
		data[0] = 'x'

		loaded, err := state.Load(ctx)
		must.NoError(t, err)
		should.Equal(t, []byte(`[]`), loaded)
	})

	t.Run("error state", func(t *testing.T) {
		boom := errors.New("disk on fire")
		state := NewMemoryRecipeStateWithError(boom)

		_, err := state.Load(ctx)
		should.ErrorIs(t, err, boom)
		should.ErrorIs(t, state.Save(ctx, []byte(`[]`)), boom)
	})
}

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3RecipeState(t *testing.T) {
	ctx := context.Background()

	t.Run("missing object is not found", func(t *testing.T) {
		state := NewS3RecipeState(&fakeS3{objects: map[string][]byte{}}, "bucket", "recipes.json")
		_, err := state.Load(ctx)
		should.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		client := &fakeS3{objects: map[string][]byte{}}
		state := NewS3RecipeState(client, "bucket", "recipes.json")

		must.NoError(t, state.Save(ctx, []byte(`[{"_id":"1"}]`)))
		should.Contains(t, client.objects, "bucket/recipes.json")

		loaded, err := state.Load(ctx)
		must.NoError(t, err)
		should.JSONEq(t, `[{"_id":"1"}]`, string(loaded))
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		boom := errors.New("access denied")
		state := NewS3RecipeState(&fakeS3{getErr: boom}, "bucket", "recipes.json")
		_, err := state.Load(ctx)
		should.ErrorIs(t, err, boom)
		should.NotErrorIs(t, err, ErrNotFound)
	})
}
