package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentID(t *testing.T) {
	t.Run("stable across calls", func(t *testing.T) {
		assert.Equal(t, DocumentID("guides/intro.md", 0), DocumentID("guides/intro.md", 0))
	})

	t.Run("chunk ordinal is the suffix", func(t *testing.T) {
		fileID := FileID("guides/intro.md")
		assert.Equal(t, fileID+"-0", DocumentID("guides/intro.md", 0))
		assert.Equal(t, fileID+"-7", DocumentID("guides/intro.md", 7))
	})

	t.Run("distinct paths yield distinct ids", func(t *testing.T) {
		assert.NotEqual(t, DocumentID("guides/a.md", 0), DocumentID("guides/b.md", 0))
	})

	t.Run("known digest", func(t *testing.T) {
		// sha1("guides/intro.md")
		assert.Equal(t, "087e78fa7d85ad809280572292de5273cb4eda58", FileID("guides/intro.md"))
	})
}

func TestHashBytes(t *testing.T) {
	// sha1("hello")
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", HashBytes([]byte("hello")))
	assert.NotEqual(t, HashBytes([]byte("a")), HashBytes([]byte("b")))
}

func TestLoaderRuleMatches(t *testing.T) {
	t.Run("folder only", func(t *testing.T) {
		rule := LoaderRule{Folder: "logs"}
		assert.True(t, rule.Matches("logs/debug.txt"))
		assert.True(t, rule.Matches("logs/deep/trace.txt"))
		assert.False(t, rule.Matches("guides/debug.txt"))
		assert.False(t, rule.Matches("logs"))
	})

	t.Run("pattern against in-folder path and basename", func(t *testing.T) {
		rule := LoaderRule{Folder: "data", Pattern: "*.csv"}
		assert.True(t, rule.Matches("data/table.csv"))
		assert.True(t, rule.Matches("data/deep/table.csv"))
		assert.False(t, rule.Matches("data/table.json"))
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{RootDir: "/srv/docs"}
		cfg.ApplyDefaults()
		cfg.Store.MasterKey = "secret"
		return cfg
	}

	t.Run("accepts a minimal valid config", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("requires root_dir", func(t *testing.T) {
		cfg := valid()
		cfg.RootDir = ""
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("requires master key", func(t *testing.T) {
		cfg := valid()
		cfg.Store.MasterKey = ""
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("rejects overlap at or above chunk size", func(t *testing.T) {
		cfg := valid()
		cfg.ChunkOverlap = cfg.ChunkSize
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("requires api key when embeddings enabled", func(t *testing.T) {
		cfg := valid()
		cfg.Embeddings.Enabled = true
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

		cfg.Embeddings.APIKey = "sk-test"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects rules without folder or with bad kind", func(t *testing.T) {
		cfg := valid()
		cfg.Rules = []LoaderRule{{Folder: "", Kind: "skip"}}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

		cfg = valid()
		cfg.Rules = []LoaderRule{{Folder: "logs", Kind: "mystery"}}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})
}

func TestKindRoundTrip(t *testing.T) {
	for _, kind := range []Kind{KindSkip, KindPlainText, KindFrontmatter, KindStructured} {
		parsed, err := ParseKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := ParseKind("mystery")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
