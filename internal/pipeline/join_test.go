package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pahscreen/domain/score"
	"pahscreen/internal/config"
	"pahscreen/internal/idmap"
)

func drugTableConfig(t *testing.T, content string) config.DrugTableConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drug_activity.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return config.DrugTableConfig{
		Path:           path,
		DrugNameColumn: "drug_name",
		MoleculeColumn: "molecule_chembl_id",
		TargetColumn:   "target_chembl_id",
		ActivityColumn: "pchembl_value",
	}
}

func TestLoadDrugTargets(t *testing.T) {
	t.Run("identity mapper with symbol targets", func(t *testing.T) {
		cfg := drugTableConfig(t,
			"drug_name,molecule_chembl_id,target_chembl_id,pchembl_value\n"+
				"Sildenafil,CHEMBL192,PDE5A,8.9\n"+
				"Sildenafil,CHEMBL192,PDE5A,7.2\n"+
				"Imatinib,CHEMBL941,PDGFRB,\n")
		pairs, err := LoadDrugTargets(cfg, idmap.Identity(), 0)
		require.NoError(t, err)
		require.Len(t, pairs, 2)

		for _, p := range pairs {
			if p.TargetGene == "PDE5A" {
				assert.Equal(t, 8.9, p.PChembl, "dedup keeps the strongest activity")
			}
		}
	})

	t.Run("coverage breach aborts", func(t *testing.T) {
		cfg := drugTableConfig(t,
			"drug_name,molecule_chembl_id,target_chembl_id,pchembl_value\n"+
				"DrugA,CHEMBL1,CHEMBL2095189,6.1\n"+
				"DrugB,CHEMBL2,CHEMBL2095190,6.2\n")
		mapPath := filepath.Join(t.TempDir(), "map.csv")
		require.NoError(t, os.WriteFile(mapPath,
			[]byte("target_chembl_id,gene_symbol\nCHEMBL2095189,EDNRA\n"), 0o644))
		mapper, err := idmap.LoadTable(mapPath, "target_chembl_id", "gene_symbol")
		require.NoError(t, err)

		_, err = LoadDrugTargets(cfg, mapper, 0.2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unresolved")
	})

	t.Run("empty table", func(t *testing.T) {
		cfg := drugTableConfig(t, "drug_name,molecule_chembl_id,target_chembl_id,pchembl_value\n")
		_, err := LoadDrugTargets(cfg, idmap.Identity(), 0)
		assert.Error(t, err)
	})
}

func TestJoinCandidates(t *testing.T) {
	lung := score.NewAxisTable(score.AxisLung, []score.GeneScore{
		{Gene: "PDE5A", Log2FC: 2.0, QValue: 0.003, Status: score.StatusLungEnriched},
	})
	pahLung := score.NewAxisTable(score.AxisPAHLung, []score.GeneScore{
		{Gene: "PDE5A", Log2FC: 1.4, QValue: 0.01, Status: score.StatusUpInPAH},
		{Gene: "EDNRA", Log2FC: 1.2, QValue: 0.02, Status: score.StatusUpInPAH},
	})
	rv := score.NewAxisTable(score.AxisRV, nil)
	vascular := score.NewAxisTable(score.AxisVascular, nil)

	pairs := []score.DrugTargetPair{
		{DrugName: "Sildenafil", MoleculeChemblID: "CHEMBL192", TargetGene: "PDE5A", PChembl: 8.9},
		{DrugName: "Novel", MoleculeChemblID: "CHEMBL0", TargetGene: "UNKNOWN1"},
	}

	t.Run("knowledge base anchors the join", func(t *testing.T) {
		cands, err := JoinCandidates(pairs, lung, pahLung, rv, vascular)
		require.NoError(t, err)
		require.Len(t, cands, 2)

		sildenafil := cands[0]
		assert.True(t, sildenafil.Lung.Present)
		assert.Equal(t, score.StatusLungEnriched, sildenafil.Lung.Status)
		assert.True(t, sildenafil.PAHLung.Present)
		assert.False(t, sildenafil.RV.Present, "no RV evidence, explicit miss")

		novel := cands[1]
		assert.False(t, novel.Lung.Present)
		assert.False(t, novel.PAHLung.Present)
	})

	t.Run("empty anchor fails", func(t *testing.T) {
		_, err := JoinCandidates(nil, lung, pahLung, rv, vascular)
		assert.Error(t, err)
	})
}
