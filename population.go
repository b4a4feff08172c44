package neuroevo

import (
	"github.com/zachbeta/neuroevo/internal/species"
	"github.com/zachbeta/neuroevo/internal/topology"
)

// Population is the top-level handle the Evolver contract hands back
// and forward: one topology and one Colony per species, advanced one
// generation at a time.
type Population struct {
	Specs               []*topology.Spec
	Colonies             []*species.Colony
	Generation            int
	TotalSpeciesCreated int
	Config               EvolutionConfig
}
