package simplefarm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/farmspool/internal/config"
	"github.com/vk/farmspool/internal/rez"
)

func testFarm() *Farm {
	profile := config.DefaultProfile()
	profile.DefaultService = "mikrosRender"
	return New(profile, rez.Env{"USER": "rnd", "PROD": "mvg"}, nil)
}

func TestDummyEngineSubmitsWithoutClient(t *testing.T) {
	farm := testFarm()
	j := farm.NewJob("handmade", map[string]string{"prod": "mvg"})
	prep := j.NewTask("prepare", "--node Prepare_1 scan.mg")
	render := j.NewTask("render", "--node Render_1 scan.mg")
	render.DependsOn(prep)

	result, err := j.Submit(context.Background(), EngineDummy, "low", []string{"rnd"})
	require.NoError(t, err)

	assert.Zero(t, result.JID)
	assert.Contains(t, result.Script, "Job -title {handmade}")
	assert.Contains(t, result.Script, "-priority 4000")
	assert.Contains(t, result.Script, "-projects {rnd}")
	assert.Contains(t, result.Script, "Task -title {prepare}")
	assert.Contains(t, result.Script, "{setenv PROD=mvg}")
}

func TestTractorEngineNeedsClient(t *testing.T) {
	j := testFarm().NewJob("j", nil)

	_, err := j.Submit(context.Background(), EngineTractor, "", nil)
	require.Error(t, err)
}

func TestUnknownEngineRejected(t *testing.T) {
	j := testFarm().NewJob("j", nil)

	_, err := j.Submit(context.Background(), "renderman", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderman")
}
