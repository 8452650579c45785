package config

import "time"

// BotDifficulty affects how quickly and how accurately a bot client attacks
type BotDifficulty int

const (
	BotDifficultyEasy BotDifficulty = iota
	BotDifficultyNormal
	BotDifficultyHard
)

func (d BotDifficulty) String() string {
	switch d {
	case BotDifficultyEasy:
		return "easy"
	case BotDifficultyNormal:
		return "normal"
	case BotDifficultyHard:
		return "hard"
	}
	return "unknown"
}

// ParseBotDifficulty maps a flag value to a difficulty, defaulting to normal.
func ParseBotDifficulty(s string) BotDifficulty {
	switch s {
	case "easy":
		return BotDifficultyEasy
	case "hard":
		return BotDifficultyHard
	}
	return BotDifficultyNormal
}

// BotDifficultyConfig holds tuning values for bot behavior at a specific difficulty
type BotDifficultyConfig struct {
	ReactionDelay time.Duration // Time an enemy must be in range before the first swing
	AttackRange   float64       // Distance at which hit claims are sent
	ChaseRange    float64       // Distance at which enemies are pursued
	Speed         float64       // Units per second
	Damage        int
	AimError      float64 // Max offset between the enemy and the claimed hit point
}

// BotConfigData holds all bot-related configuration
type BotConfigData struct {
	Difficulties map[BotDifficulty]BotDifficultyConfig
}

// Bot holds bot client configuration
var Bot BotConfigData

func init() {
	Bot = BotConfigData{
		Difficulties: map[BotDifficulty]BotDifficultyConfig{
			BotDifficultyEasy: {
				ReactionDelay: 500 * time.Millisecond,
				AttackRange:   40.0,
				ChaseRange:    150.0,
				Speed:         80.0,
				Damage:        5,
				AimError:      30.0,
			},
			BotDifficultyNormal: {
				ReactionDelay: 250 * time.Millisecond,
				AttackRange:   50.0,
				ChaseRange:    200.0,
				Speed:         110.0,
				Damage:        8,
				AimError:      15.0,
			},
			BotDifficultyHard: {
				ReactionDelay: 80 * time.Millisecond,
				AttackRange:   60.0,
				ChaseRange:    250.0,
				Speed:         140.0,
				Damage:        12,
				AimError:      0,
			},
		},
	}
}
