package testutils

// -------------------------------------------------------------------------------------------------
// Components
// -------------------------------------------------------------------------------------------------

type Position struct {
	X, Y int
}

func (Position) Name() string { return "Position" }

type Velocity struct {
	X, Y int
}

func (Velocity) Name() string { return "Velocity" }

type Health struct {
	HP  int `json:"hp"`
	Max int `json:"max"`
}

func (Health) Name() string { return "Health" }

type Label struct {
	Text string `json:"text"`
}

func (Label) Name() string { return "Label" }

// Impostor deliberately shares its Name with Health. Tags must still tell them apart.
type Impostor struct {
	HP int
}

func (Impostor) Name() string { return "Health" }

// Cursor is only Typed through its pointer.
type Cursor struct {
	Row, Col int
}

func (c *Cursor) Name() string { return "Cursor" }

// -------------------------------------------------------------------------------------------------
// Events
// -------------------------------------------------------------------------------------------------

type DamageEvent struct {
	Target string
	Amount int
}

func (DamageEvent) Name() string { return "damage" }

type HealEvent struct {
	Target string
	Amount int
}

func (HealEvent) Name() string { return "heal" }
