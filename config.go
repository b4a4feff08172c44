package neuroevo

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/zachbeta/neuroevo/internal/mutate"
)

// MutationRates is the TOML-tagged mirror of internal/mutate's
// WeightRates, kept as a distinct type so the on-disk config schema
// doesn't leak mutate's internal struct layout.
type MutationRates struct {
	WeightJitter       float64 `toml:"weight_jitter"`
	WeightJitterStddev float64 `toml:"weight_jitter_stddev"`
	WeightReset        float64 `toml:"weight_reset"`
	WeightL1Shrink     float64 `toml:"weight_l1_shrink"`
	L1ShrinkFactor     float64 `toml:"l1_shrink_factor"`
	ActivationSwap     float64 `toml:"activation_swap"`
	NodeParamMutate    float64 `toml:"node_param_mutate"`
	NodeParamStddev    float64 `toml:"node_param_stddev"`
}

func (m MutationRates) toWeightRates() mutate.WeightRates {
	return mutate.WeightRates{
		JitterProbability:          m.WeightJitter,
		JitterStddev:                m.WeightJitterStddev,
		ResetProbability:            m.WeightReset,
		L1ShrinkProbability:         m.WeightL1Shrink,
		L1ShrinkFactor:              m.L1ShrinkFactor,
		ActivationSwapProbability:   m.ActivationSwap,
		NodeParamMutateProbability: m.NodeParamMutate,
		NodeParamStddev:             m.NodeParamStddev,
	}
}

// WeakEdgePruning mirrors edge_mutations.weak_edge_pruning.
type WeakEdgePruning struct {
	Enabled              bool    `toml:"enabled"`
	Threshold            float64 `toml:"threshold"`
	BasePruneRate        float64 `toml:"base_prune_rate"`
	ApplyDuringEvolution bool    `toml:"apply_during_evolution"`
}

// EdgeMutations mirrors the edge_mutations.* config surface.
type EdgeMutations struct {
	EdgeAdd          float64         `toml:"edge_add"`
	EdgeDeleteRandom float64         `toml:"edge_delete_random"`
	EdgeSplit        float64         `toml:"edge_split"`
	EdgeRedirect     float64         `toml:"edge_redirect"`
	EdgeSwap         float64         `toml:"edge_swap"`
	WeakEdgePruning  WeakEdgePruning `toml:"weak_edge_pruning"`
}

func (e EdgeMutations) toEdgeRates() mutate.EdgeRates {
	return mutate.EdgeRates{
		EdgeAdd:          e.EdgeAdd,
		EdgeDeleteRandom: e.EdgeDeleteRandom,
		EdgeSplit:        e.EdgeSplit,
		EdgeRedirect:     e.EdgeRedirect,
		EdgeSwap:         e.EdgeSwap,
		WeakEdgePruning: mutate.WeakEdgePruningRates{
			Enabled:              e.WeakEdgePruning.Enabled,
			Threshold:            e.WeakEdgePruning.Threshold,
			BaseRate:             e.WeakEdgePruning.BasePruneRate,
			ApplyDuringEvolution: e.WeakEdgePruning.ApplyDuringEvolution,
		},
	}
}

// EvolutionConfig is the full recognized configuration surface, loaded
// from a TOML file the way stojg-playlist-sorter loads GAConfig.
type EvolutionConfig struct {
	SpeciesCount          int     `toml:"species_count"`
	MinSpeciesCount       int     `toml:"min_species_count"`
	IndividualsPerSpecies int     `toml:"individuals_per_species"`
	Elites                int     `toml:"elites"`
	TournamentSize        int     `toml:"tournament_size"`
	ParentPoolPercentage  float64 `toml:"parent_pool_percentage"`

	GraceGenerations             int     `toml:"grace_generations"`
	StagnationThreshold          int     `toml:"stagnation_threshold"`
	SpeciesDiversityThreshold    float64 `toml:"species_diversity_threshold"`
	RelativePerformanceThreshold float64 `toml:"relative_performance_threshold"`

	MutationRates MutationRates `toml:"mutation_rates"`
	EdgeMutations EdgeMutations `toml:"edge_mutations"`

	// Diversification's hidden-row-size and max-in-degree perturbation
	// bounds are not configurable: they are fixed spec constants (see
	// internal/species.DiversifyConfig's sibling consts).
}

// DefaultEvolutionConfig returns conservative defaults suitable for a
// small fixed-topology search.
func DefaultEvolutionConfig() EvolutionConfig {
	return EvolutionConfig{
		SpeciesCount:          8,
		MinSpeciesCount:       2,
		IndividualsPerSpecies: 50,
		Elites:                2,
		TournamentSize:        3,
		ParentPoolPercentage:  0.5,

		GraceGenerations:             5,
		StagnationThreshold:          15,
		SpeciesDiversityThreshold:    1e-4,
		RelativePerformanceThreshold: 0.8,

		MutationRates: MutationRates{
			WeightJitter:       0.8,
			WeightJitterStddev: 0.1,
			WeightReset:        0.05,
			WeightL1Shrink:     0.02,
			L1ShrinkFactor:     0.01,
			ActivationSwap:     0.03,
			NodeParamMutate:    0.1,
			NodeParamStddev:    0.1,
		},
		EdgeMutations: EdgeMutations{
			EdgeAdd:          0.05,
			EdgeDeleteRandom: 0.03,
			EdgeSplit:        0.02,
			EdgeRedirect:     0.02,
			EdgeSwap:         0.01,
			WeakEdgePruning: WeakEdgePruning{
				Enabled:              true,
				Threshold:            0.05,
				BasePruneRate:        0.3,
				ApplyDuringEvolution: true,
			},
		},
	}
}

// LoadEvolutionConfig reads and parses a TOML file at path. A missing
// file is not an error: it yields DefaultEvolutionConfig.
func LoadEvolutionConfig(path string) (EvolutionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultEvolutionConfig(), nil
		}
		return DefaultEvolutionConfig(), fmt.Errorf("neuroevo: read config: %w", err)
	}
	config := DefaultEvolutionConfig()
	if err := toml.Unmarshal(data, &config); err != nil {
		return DefaultEvolutionConfig(), fmt.Errorf("neuroevo: parse config: %w", err)
	}
	return config, nil
}
