package degrade

// Config is the parameter bundle the renderer consumes each frame.
// It is derived from the current level, never stored.
type Config struct {
	// ParticleCount is the number of animated elements.
	ParticleCount int

	// AnimationSpeed scales the animation clock; 0 freezes it.
	AnimationSpeed float64

	// InteractionEnabled allows pointer interaction with the effect.
	InteractionEnabled bool

	// RenderScale scales the render resolution; 1.0 is native.
	RenderScale float64

	// ComplexEffects enables the expensive visual layers.
	ComplexEffects bool

	// UseSimpleShader selects the simplified fallback shader.
	UseSimpleShader bool
}

// configs is the fixed per-level lookup table. Budgets strictly decrease
// with each tier; disabled zeroes every animated parameter.
var configs = map[Level]Config{
	LevelNone: {
		ParticleCount:      2000,
		AnimationSpeed:     1.0,
		InteractionEnabled: true,
		RenderScale:        1.0,
		ComplexEffects:     true,
		UseSimpleShader:    false,
	},
	LevelReduced: {
		ParticleCount:      800,
		AnimationSpeed:     0.75,
		InteractionEnabled: true,
		RenderScale:        0.75,
		ComplexEffects:     false,
		UseSimpleShader:    false,
	},
	LevelMinimal: {
		ParticleCount:      200,
		AnimationSpeed:     0.5,
		InteractionEnabled: false,
		RenderScale:        0.5,
		ComplexEffects:     false,
		UseSimpleShader:    true,
	},
	LevelDisabled: {
		ParticleCount:      0,
		AnimationSpeed:     0,
		InteractionEnabled: false,
		RenderScale:        0,
		ComplexEffects:     false,
		UseSimpleShader:    true,
	},
}

// ConfigFor returns the parameter bundle for a level.
func ConfigFor(level Level) Config {
	if c, ok := configs[level]; ok {
		return c
	}
	return configs[LevelDisabled]
}

// Config returns the parameter bundle for the currently applied level.
func (m *Manager) Config() Config {
	return ConfigFor(m.Level())
}
