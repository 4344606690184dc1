package pokeapi

// NamedResource is the PokeAPI (name, url) reference pair.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TypeSlot is one entry of a Pokemon's type list. Slot numbering and ordering
// come from the provider and are preserved as-is.
type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// StatValue is one entry of a Pokemon's stat list.
type StatValue struct {
	BaseStat int           `json:"base_stat"`
	Effort   int           `json:"effort"`
	Stat     NamedResource `json:"stat"`
}

// AbilitySlot is one entry of a Pokemon's ability list.
type AbilitySlot struct {
	Ability  NamedResource `json:"ability"`
	IsHidden bool          `json:"is_hidden"`
	Slot     int           `json:"slot"`
}

// Sprites is the small image-reference bundle attached to a Pokemon.
type Sprites struct {
	FrontDefault string         `json:"front_default,omitempty"`
	FrontShiny   string         `json:"front_shiny,omitempty"`
	Other        map[string]any `json:"other,omitempty"`
}

// Pokemon is the externally sourced species record. It is treated as
// read-only once constructed; list ordering reflects the provider exactly.
type Pokemon struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	Height     int           `json:"height"`
	Weight     int           `json:"weight"`
	Types      []TypeSlot    `json:"types"`
	Stats      []StatValue   `json:"stats"`
	Abilities  []AbilitySlot `json:"abilities"`
	Sprites    Sprites       `json:"sprites"`
	SpeciesURL string        `json:"species_url,omitempty"`
}
