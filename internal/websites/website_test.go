package websites_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/testsupport"
	"sitepulse/internal/websites"
)

func TestRegistry(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	registry := websites.NewRegistry(db)
	ctx := context.Background()

	created, err := registry.Create(ctx, "  www.Example.com ")
	require.NoError(t, err)
	_, err = uuid.Parse(created.ID)
	require.NoError(t, err, "ids are uuids")
	assert.Equal(t, "example.com", created.Domain)

	t.Run("exists", func(t *testing.T) {
		ok, err := registry.Exists(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = registry.Exists(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = registry.Exists(ctx, "")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("get", func(t *testing.T) {
		got, err := registry.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Domain, got.Domain)

		_, err = registry.Get(ctx, "missing")
		var notFound *websites.WebsiteNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "missing", notFound.ID)
	})

	t.Run("get by domain collapses subdomains", func(t *testing.T) {
		got, err := registry.GetByDomain(ctx, "blog.example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)

		_, err = registry.GetByDomain(ctx, "other.org")
		var notFound *websites.WebsiteNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("duplicate domain is rejected", func(t *testing.T) {
		_, err := registry.Create(ctx, "example.com")
		assert.Error(t, err)
	})

	t.Run("empty domain is rejected", func(t *testing.T) {
		_, err := registry.Create(ctx, "   ")
		assert.Error(t, err)
	})

	t.Run("list is ordered by domain", func(t *testing.T) {
		_, err := registry.Create(ctx, "alpha.dev")
		require.NoError(t, err)

		list, err := registry.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "alpha.dev", list[0].Domain)
		assert.Equal(t, "example.com", list[1].Domain)
	})
}

func TestBaseDomainForHost(t *testing.T) {
	tests := map[string]string{
		"example.com":         "example.com",
		"www.example.com":     "example.com",
		"a.b.example.com":     "example.com",
		"shop.example.co.uk":  "example.co.uk",
		"app.localhost":       "localhost",
		"localhost":           "localhost",
		"News.Example.COM.AU": "example.com.au",
	}
	for host, want := range tests {
		t.Run(host, func(t *testing.T) {
			assert.Equal(t, want, websites.BaseDomainForHost(host))
		})
	}
}
