package geo

import (
	"compress/gzip"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pahscreen/domain/expr"
)

const fixture = `!Series_title	"Lung transcriptomics"
!Sample_geo_accession	"GSM001"	"GSM002"	"GSM003"	"GSM004"
!Sample_title	"PAH lung 1"	"PAH lung 2"	"control lung 1"	"control lung 2"
!Sample_characteristics_ch1	"disease state: PAH"	"disease state: PAH"	"disease state: control"	"disease state: control"
!Sample_characteristics_ch1	"tissue: lung"	"tissue: lung"	"tissue: lung"	"tissue: lung"
!series_matrix_table_begin
"ID_REF"	"GSM001"	"GSM002"	"GSM003"	"GSM004"
"BMPR2"	5.2	5.4	8.1	7.9
"EDN1"	9.3	9.1	4.2	4.4
"SPARSE"	3.3	null	2.1	""
!series_matrix_table_end
`

func writeFixture(t *testing.T, dir, name string, gzipped bool) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	if gzipped {
		zw := gzip.NewWriter(f)
		_, err = zw.Write([]byte(fixture))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		return path
	}
	_, err = f.WriteString(fixture)
	require.NoError(t, err)
	return path
}

func TestReadSeriesMatrix(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "series_matrix.txt", false)

	m, err := ReadSeriesMatrix(path, "GSE_TEST")
	require.NoError(t, err)

	t.Run("structure", func(t *testing.T) {
		assert.Equal(t, "GSE_TEST", m.Source)
		require.Len(t, m.Genes, 3)
		require.Len(t, m.Samples, 4)
		assert.Equal(t, "BMPR2", m.Genes[0].String())
	})

	t.Run("metadata alignment", func(t *testing.T) {
		s := m.Samples[0]
		assert.Equal(t, "GSM001", s.Accession)
		assert.Equal(t, "PAH lung 1", s.Title)
		assert.Equal(t, "PAH", s.Characteristics["disease state"])
		assert.Equal(t, "lung", s.Characteristics["tissue"])
	})

	t.Run("values and missing cells", func(t *testing.T) {
		assert.Equal(t, 5.2, m.Values[0][0])
		assert.Equal(t, 4.4, m.Values[1][3])
		assert.True(t, math.IsNaN(m.Values[2][1]), "null cell")
		assert.True(t, math.IsNaN(m.Values[2][3]), "blank cell")
	})

	t.Run("gzip yields the identical matrix", func(t *testing.T) {
		gzPath := writeFixture(t, dir, "series_matrix.txt.gz", true)
		gz, err := ReadSeriesMatrix(gzPath, "GSE_TEST")
		require.NoError(t, err)
		assert.Equal(t, m.Genes, gz.Genes)
		assert.Equal(t, m.Samples, gz.Samples)
		for i := range m.Values {
			for j := range m.Values[i] {
				if math.IsNaN(m.Values[i][j]) {
					assert.True(t, math.IsNaN(gz.Values[i][j]))
				} else {
					assert.Equal(t, m.Values[i][j], gz.Values[i][j])
				}
			}
		}
	})

	t.Run("groups assignable from characteristics", func(t *testing.T) {
		err := m.AssignGroups(
			[]expr.GroupRule{{Key: "disease state", Contains: []string{"pah"}}},
			[]expr.GroupRule{{Key: "disease state", Contains: []string{"control"}}},
			"pah", "control")
		require.NoError(t, err)
		assert.Equal(t, "pah", m.Samples[0].Group)
		assert.Equal(t, "pah", m.Samples[1].Group)
		assert.Equal(t, "control", m.Samples[2].Group)
		assert.Equal(t, "control", m.Samples[3].Group)
	})
}

func TestReadSeriesMatrixErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadSeriesMatrix(filepath.Join(dir, "absent.txt"), "x")
		assert.Error(t, err)
	})

	t.Run("no table section", func(t *testing.T) {
		path := filepath.Join(dir, "meta_only.txt")
		require.NoError(t, os.WriteFile(path, []byte("!Sample_title\t\"a\"\n"), 0o644))
		_, err := ReadSeriesMatrix(path, "x")
		assert.Error(t, err)
	})

	t.Run("ragged gene row", func(t *testing.T) {
		bad := "!series_matrix_table_begin\n\"ID_REF\"\t\"GSM1\"\t\"GSM2\"\n\"A\"\t1.0\n!series_matrix_table_end\n"
		path := filepath.Join(dir, "ragged.txt")
		require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))
		_, err := ReadSeriesMatrix(path, "x")
		assert.Error(t, err)
	})
}
