package config

import (
	"os"
	"strconv"
	"strings"

	"pahscreen/domain/expr"
	"pahscreen/domain/score"
	"pahscreen/internal/errors"
)

// Config represents the complete pipeline configuration
type Config struct {
	Inputs   InputsConfig
	Results  ResultsConfig
	Axes     AxesConfig
	Scoring  ScoringConfig
	Report   ReportConfig
	Mapping  MappingConfig
	Drugs    DrugTableConfig
	Database DatabaseConfig
}

// GEOSource describes one series-matrix input and its sample partition
type GEOSource struct {
	Path         string
	CaseGroup    string
	ControlGroup string
	CaseRules    []expr.GroupRule
	ControlRules []expr.GroupRule
}

// InputsConfig holds the four expression sources
type InputsConfig struct {
	Lung     GEOSource
	PAHLung  GEOSource
	RV       GEOSource
	Vascular GEOSource
}

// ResultsConfig holds output locations
type ResultsConfig struct {
	Dir string
}

// AxisThresholds is the fixed threshold policy for one axis scorer
type AxisThresholds struct {
	Log2FCThreshold   float64 `json:"log2fc_threshold"`
	MeanExprThreshold float64 `json:"mean_expr_threshold"`
	QValueThreshold   float64 `json:"q_value_threshold"`
	Pseudocount       float64 `json:"pseudocount"`
}

// AxesConfig holds per-axis threshold policies
type AxesConfig struct {
	Lung     AxisThresholds
	PAHLung  AxisThresholds
	RV       AxisThresholds
	Vascular AxisThresholds
}

// ScoringConfig holds composite scoring settings
type ScoringConfig struct {
	Weights             score.Weights `json:"weights"`
	VascularSaturation  float64       `json:"vascular_saturation"`
	RepurposingMinScore float64       `json:"repurposing_min_score"`
}

// ReportConfig holds report truncation settings
type ReportConfig struct {
	TopNTable     int
	TopNNarrative int
	TopNGenes     int
}

// MappingConfig holds the identifier mapping table settings
type MappingConfig struct {
	Path                  string
	FromColumn            string
	ToColumn              string
	MaxUnresolvedFraction float64
}

// DrugTableConfig holds the drug knowledge base column bindings
type DrugTableConfig struct {
	Path           string
	DrugNameColumn string
	MoleculeColumn string
	TargetColumn   string
	ActivityColumn string
}

// DatabaseConfig holds the optional results warehouse connection
type DatabaseConfig struct {
	URL string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Inputs: InputsConfig{
			Lung: GEOSource{
				Path:         getEnvOrDefault("LUNG_MATRIX", ""),
				CaseGroup:    "lung",
				ControlGroup: "control_tissue",
				CaseRules:    parseGroupRules(getEnvOrDefault("LUNG_CASE_MATCH", "tissue:lung")),
				ControlRules: parseGroupRules(getEnvOrDefault("LUNG_CONTROL_MATCH", "tissue:control")),
			},
			PAHLung: GEOSource{
				Path:         getEnvOrDefault("PAH_LUNG_MATRIX", ""),
				CaseGroup:    "pah",
				ControlGroup: "control",
				CaseRules:    parseGroupRules(getEnvOrDefault("PAH_CASE_MATCH", "disease state:pulmonary arterial hypertension")),
				ControlRules: parseGroupRules(getEnvOrDefault("PAH_CONTROL_MATCH", "disease state:control")),
			},
			RV: GEOSource{
				Path:         getEnvOrDefault("RV_MATRIX", ""),
				CaseGroup:    "pah_rv",
				ControlGroup: "control",
				CaseRules:    parseGroupRules(getEnvOrDefault("RV_CASE_MATCH", "disease state:pulmonary arterial hypertension")),
				ControlRules: parseGroupRules(getEnvOrDefault("RV_CONTROL_MATCH", "disease state:control")),
			},
			Vascular: GEOSource{
				Path:         getEnvOrDefault("VASCULAR_MATRIX", ""),
				CaseGroup:    "vascular",
				ControlGroup: "whole_lung",
				CaseRules:    parseGroupRules(getEnvOrDefault("VASCULAR_CASE_MATCH", "cell type:pulmonary artery endothelial,cell type:lung microvascular endothelial")),
				ControlRules: parseGroupRules(getEnvOrDefault("VASCULAR_CONTROL_MATCH", "tissue:whole lung")),
			},
		},
		Results: ResultsConfig{
			Dir: getEnvOrDefault("RESULTS_DIR", "results"),
		},
		Axes: AxesConfig{
			Lung:     loadAxisThresholds("LUNG", 1.0, 5.0),
			PAHLung:  loadAxisThresholds("PAH", 1.0, 5.0),
			RV:       loadAxisThresholds("RV", 1.0, 5.0),
			Vascular: loadAxisThresholds("VASCULAR", 1.0, 0.0),
		},
		Scoring: ScoringConfig{
			Weights: score.Weights{
				LungEnriched: getEnvFloatOrDefault("WEIGHT_LUNG_ENRICHED", 1.0),
				PAHLungUp:    getEnvFloatOrDefault("WEIGHT_PAH_LUNG_UP", 2.0),
				PAHRVDown:    getEnvFloatOrDefault("WEIGHT_PAH_RV_DOWN", 2.0),
				Vascular:     getEnvFloatOrDefault("WEIGHT_VASCULAR", 1.0),
			},
			VascularSaturation:  getEnvFloatOrDefault("VASCULAR_SATURATION", 2.0),
			RepurposingMinScore: getEnvFloatOrDefault("REPURPOSING_MIN_SCORE", 3.0),
		},
		Report: ReportConfig{
			TopNTable:     getEnvIntOrDefault("REPORT_TOP_N", 50),
			TopNNarrative: getEnvIntOrDefault("REPORT_NARRATIVE_N", 5),
			TopNGenes:     getEnvIntOrDefault("REPORT_GENES_N", 50),
		},
		Mapping: MappingConfig{
			Path:                  getEnvOrDefault("TARGET_GENE_MAP", ""),
			FromColumn:            getEnvOrDefault("MAP_FROM_COLUMN", "target_chembl_id"),
			ToColumn:              getEnvOrDefault("MAP_TO_COLUMN", "gene_symbol"),
			MaxUnresolvedFraction: getEnvFloatOrDefault("MAP_MAX_UNRESOLVED", 0.2),
		},
		Drugs: DrugTableConfig{
			Path:           getEnvOrDefault("DRUG_ACTIVITY_TABLE", ""),
			DrugNameColumn: getEnvOrDefault("DRUG_NAME_COLUMN", "drug_name"),
			MoleculeColumn: getEnvOrDefault("DRUG_MOLECULE_COLUMN", "molecule_chembl_id"),
			TargetColumn:   getEnvOrDefault("DRUG_TARGET_COLUMN", "target_chembl_id"),
			ActivityColumn: getEnvOrDefault("DRUG_ACTIVITY_COLUMN", "pchembl_value"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func loadAxisThresholds(prefix string, defaultLog2FC, defaultMeanFloor float64) AxisThresholds {
	return AxisThresholds{
		Log2FCThreshold:   getEnvFloatOrDefault(prefix+"_LOG2FC_THRESHOLD", defaultLog2FC),
		MeanExprThreshold: getEnvFloatOrDefault(prefix+"_MEAN_EXPR_THRESHOLD", defaultMeanFloor),
		QValueThreshold:   getEnvFloatOrDefault(prefix+"_QVALUE_THRESHOLD", 0.05),
		Pseudocount:       getEnvFloatOrDefault(prefix+"_PSEUDOCOUNT", 1.0),
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Results.Dir == "" {
		return errors.ConfigInvalid("RESULTS_DIR cannot be empty")
	}
	if cfg.Mapping.MaxUnresolvedFraction < 0 || cfg.Mapping.MaxUnresolvedFraction > 1 {
		return errors.ConfigInvalid("MAP_MAX_UNRESOLVED must be in [0,1]")
	}
	if cfg.Scoring.VascularSaturation <= 0 {
		return errors.ConfigInvalid("VASCULAR_SATURATION must be positive")
	}
	for _, w := range []float64{
		cfg.Scoring.Weights.LungEnriched,
		cfg.Scoring.Weights.PAHLungUp,
		cfg.Scoring.Weights.PAHRVDown,
		cfg.Scoring.Weights.Vascular,
	} {
		if w < 0 {
			return errors.ConfigInvalid("composite weights must be non-negative")
		}
	}
	for _, th := range []AxisThresholds{cfg.Axes.Lung, cfg.Axes.PAHLung, cfg.Axes.RV, cfg.Axes.Vascular} {
		if th.QValueThreshold <= 0 || th.QValueThreshold > 1 {
			return errors.ConfigInvalid("q-value thresholds must be in (0,1]")
		}
		if th.Pseudocount <= 0 {
			return errors.ConfigInvalid("pseudocounts must be positive")
		}
	}
	if cfg.Report.TopNTable <= 0 || cfg.Report.TopNNarrative <= 0 {
		return errors.ConfigInvalid("report top-N cutoffs must be positive")
	}
	return nil
}

// parseGroupRules parses "key:frag|frag,key:frag" into grouping rules.
// The key matches a sample characteristic; an empty key matches the title.
func parseGroupRules(s string) []expr.GroupRule {
	var rules []expr.GroupRule
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, frags, found := strings.Cut(part, ":")
		if !found {
			frags = key
			key = ""
		}
		var contains []string
		for _, f := range strings.Split(frags, "|") {
			if f = strings.TrimSpace(f); f != "" {
				contains = append(contains, f)
			}
		}
		if len(contains) == 0 {
			continue
		}
		rules = append(rules, expr.GroupRule{Key: strings.TrimSpace(key), Contains: contains})
	}
	return rules
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
