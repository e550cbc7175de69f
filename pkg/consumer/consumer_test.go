package consumer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgcheck-go/pkgcheck/pkg/consumer"
	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/result"
)

func TestFuncDelegatesToProvidedCallbacks(t *testing.T) {
	t.Parallel()

	var fed []item.Item

	c := consumer.Func{
		FeedFunc: func(_ context.Context, it item.Item) ([]result.Result, error) {
			fed = append(fed, it)

			return []result.Result{{Message: "fed"}}, nil
		},
	}

	res, err := c.Feed(context.Background(), item.Category{Name: "dev-lang"})
	require.NoError(t, err)
	assert.Len(t, res, 1)
	assert.Len(t, fed, 1)

	startRes, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Nil(t, startRes)
}

func TestMetadataFailureUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad ebuild")
	failure := &consumer.MetadataFailure{Item: item.Category{Name: "dev-lang"}, Attribute: "KEYWORDS", Err: cause}

	require.ErrorIs(t, failure, cause)
	assert.Contains(t, failure.Error(), "KEYWORDS")
}

func TestAsMetadataFailure(t *testing.T) {
	t.Parallel()

	wrapped := &consumer.MetadataFailure{Err: errors.New("oops")}

	mf, ok := consumer.AsMetadataFailure(wrapped)
	require.True(t, ok)
	assert.Equal(t, wrapped, mf)

	_, ok = consumer.AsMetadataFailure(errors.New("plain"))
	assert.False(t, ok)
}
