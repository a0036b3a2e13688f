package rez

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvedVersions(t *testing.T) {
	env := Env{
		"REZ_RESOLVE": "meshroom-2023.2 alembic-1.8.5 ~platform-linux opencv-4.5-patched",
	}

	versions := ResolvedVersions(env)

	assert.Equal(t, "2023.2", versions["meshroom"])
	assert.Equal(t, "1.8.5", versions["alembic"])
	// Multi-hyphen versions are rejoined.
	assert.Equal(t, "4.5-patched", versions["opencv"])
	// Implicit packages are skipped.
	assert.NotContains(t, versions, "~platform")
	assert.NotContains(t, versions, "platform")
}

func TestRequestPackages(t *testing.T) {
	t.Run("pins requested packages against resolved versions", func(t *testing.T) {
		env := Env{
			"REZ_REQUEST":      "meshroom alembic",
			"REZ_USED_REQUEST": "meshroom-2023.2 alembic ~platform-linux !excluded-1",
			"REZ_RESOLVE":      "meshroom-2023.2 alembic-1.8.5",
		}

		packages, err := RequestPackages(env, "==")
		require.NoError(t, err)
		assert.Equal(t, []string{"alembic==1.8.5", "meshroom==2023.2"}, packages)
	})

	t.Run("falls back to REZ_MESHROOM_VERSION", func(t *testing.T) {
		env := Env{"REZ_MESHROOM_VERSION": "2023.2"}

		packages, err := RequestPackages(env, "-")
		require.NoError(t, err)
		assert.Equal(t, []string{"meshroom-2023.2"}, packages)
	})

	t.Run("empty without any rez context", func(t *testing.T) {
		packages, err := RequestPackages(Env{}, "==")
		require.NoError(t, err)
		assert.Empty(t, packages)
	})

	t.Run("unresolved request is an error", func(t *testing.T) {
		env := Env{
			"REZ_REQUEST":      "ghost",
			"REZ_USED_REQUEST": "ghost-1.0",
			"REZ_RESOLVE":      "",
		}

		_, err := RequestPackages(env, "==")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ghost")
	})
}

func TestWrapCommand(t *testing.T) {
	env := Env{
		"REZ_REQUEST":      "meshroom",
		"REZ_USED_REQUEST": "meshroom-2023.2",
		"REZ_RESOLVE":      "meshroom-2023.2 alembic-1.8.5",
	}

	t.Run("requested context", func(t *testing.T) {
		cmd, err := WrapCommand(env, "meshroom_compute --node Meshing_1", WrapOptions{})
		require.NoError(t, err)
		assert.Equal(t, "rez env meshroom==2023.2 -- meshroom_compute --node Meshing_1", cmd)
	})

	t.Run("full context with extra packages", func(t *testing.T) {
		cmd, err := WrapCommand(env, "render", WrapOptions{
			UseCurrentContext: true,
			ExtraPackages:     []string{"nuke-14"},
		})
		require.NoError(t, err)
		assert.Equal(t, "rez env alembic-1.8.5 meshroom-2023.2 nuke-14 -- render", cmd)
	})

	t.Run("no packages leaves command untouched", func(t *testing.T) {
		cmd, err := WrapCommand(Env{}, "render", WrapOptions{})
		require.NoError(t, err)
		assert.Equal(t, "render", cmd)
	})

	t.Run("custom rez binary", func(t *testing.T) {
		custom := Env{
			"REZ_MESHROOM_VERSION": "2023.2",
			"REZ_REQUEST":          "",
			"REZ_USED_REQUEST":     "meshroom-2023.2",
			"REZ_RESOLVE":          "meshroom-2023.2",
			"REZ_BIN":              "/opt/rez/bin/rez",
		}

		cmd, err := WrapCommand(custom, "render", WrapOptions{})
		require.NoError(t, err)
		assert.Equal(t, "/opt/rez/bin/rez env meshroom==2023.2 -- render", cmd)
	})
}

func TestJobEnvironment(t *testing.T) {
	env := Env{
		"PROD":                  "mvg",
		"PROD_ROOT":             "/prods/mvg",
		"REZ_DEV_PACKAGES_ROOT": "/dev/packages",
		"HOME":                  "/home/rnd",
	}

	jobEnv := JobEnvironment(env)

	assert.Equal(t, map[string]string{
		"PROD":                  "mvg",
		"PROD_ROOT":             "/prods/mvg",
		"REZ_DEV_PACKAGES_ROOT": "/dev/packages",
	}, jobEnv)
}
