package inmemdb

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/social"
)

func TestSocialRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSocialRepository(Open())

	s1, err := repo.CreateSpark(ctx, social.Spark{ID: "s1", Question: "why?"})
	require.NoError(t, err)
	_, err = repo.CreateSpark(ctx, social.Spark{ID: "s2", Question: "how?"})
	require.NoError(t, err)

	sparks, err := repo.QuerySparks(ctx)
	require.NoError(t, err)
	require.Len(t, sparks, 2)
	assert.Equal(t, "s2", sparks[0].ID)
	assert.Equal(t, "s1", sparks[1].ID)

	_, err = repo.CreateEcho(ctx, social.Echo{ID: "e1", SparkID: s1.ID, Text: "a"})
	require.NoError(t, err)
	_, err = repo.CreateEcho(ctx, social.Echo{ID: "e2", SparkID: s1.ID, Text: "b"})
	require.NoError(t, err)
	_, err = repo.CreateEcho(ctx, social.Echo{ID: "e3", SparkID: "ghost", Text: "c"})
	require.NoError(t, err)

	got, err := repo.GetSpark(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.EchoCount)

	echoes, err := repo.QueryEchoes(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, []string{echoes[0].ID, echoes[1].ID})

	echoes, err = repo.QueryEchoes(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, echoes)

	_, err = repo.GetSpark(ctx, "ghost")
	assert.Equal(t, social.ErrNotFound, err)
}

func TestSocialRepository_ConcurrentEchoes(t *testing.T) {
	ctx := context.Background()
	repo := NewSocialRepository(Open())
	spk, err := repo.CreateSpark(ctx, social.Spark{ID: "s1"})
	require.NoError(t, err)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.CreateEcho(ctx, social.Echo{SparkID: spk.ID})
			_, _ = repo.QuerySparks(ctx)
		}()
	}
	wg.Wait()

	got, err := repo.GetSpark(ctx, spk.ID)
	require.NoError(t, err)
	echoes, err := repo.QueryEchoes(ctx, spk.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.EchoCount)
	assert.Len(t, echoes, n)
}
