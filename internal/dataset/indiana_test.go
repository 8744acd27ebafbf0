package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIndiana(t *testing.T, projections, reports string) string {
	t.Helper()
	dir := t.TempDir()
	writeCSV(t, dir, ProjectionsFile, projections)
	writeCSV(t, dir, ReportsFile, reports)
	return dir
}

func TestLoadIndiana(t *testing.T) {
	dir := writeIndiana(t,
		"uid,filename,projection\n"+
			"1,1_IM-0001-4001.dcm.png,Frontal\n"+
			"2,2_IM-0652-1001.dcm.png,Frontal\n"+
			"1,1_IM-0001-3001.dcm.png,Lateral\n"+
			"3,3_IM-1384-1001.dcm.png,Frontal\n"+
			"9,9_orphan.dcm.png,Frontal\n",
		"uid,MeSH,findings,impression\n"+
			"1,normal,The cardiac silhouette is normal.,No acute disease.\n"+
			"2,effusion,,Small effusion.\n"+
			"3,opacity,\"Right lower lobe opacity.\nNo pneumothorax.\",Pneumonia.\n",
	)

	samples, err := LoadIndiana(dir)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, "1_IM-0001-4001.dcm.png", samples[0].Filename)
	assert.Equal(t, "1_IM-0001-3001.dcm.png", samples[1].Filename)
	assert.Equal(t, "Lateral", samples[1].Projection)
	assert.Equal(t, "3", samples[2].UID)

	assert.Equal(t, "Findings: The cardiac silhouette is normal.\nImpression: No acute disease.", samples[0].Report)
	assert.Equal(t, "Findings: Right lower lobe opacity.\nNo pneumothorax.\nImpression: Pneumonia.", samples[2].Report)
	assert.Equal(t, filepath.Join(dir, "images", "images_normalized", "1_IM-0001-4001.dcm.png"), samples[0].ImagePath)
}

func TestLoadIndiana_Errors(t *testing.T) {
	t.Run("missing tables", func(t *testing.T) {
		_, err := LoadIndiana(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), ProjectionsFile)
	})

	t.Run("missing columns", func(t *testing.T) {
		dir := writeIndiana(t, "uid,filename\n1,a.png\n", "uid,findings\n1,x\n")
		_, err := LoadIndiana(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "impression")
	})

	t.Run("nothing usable", func(t *testing.T) {
		dir := writeIndiana(t, "uid,filename\n1,a.png\n", "uid,findings,impression\n1,,\n")
		_, err := LoadIndiana(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no usable samples")
	})
}
