package mediator

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/x-research-team/dtx-mediator/bus/request"
)

const (
	// DefaultCommandHistoryMaxSize - размер истории команд по умолчанию.
	DefaultCommandHistoryMaxSize = 64
	// DefaultRedoHistoryMaxSize - размер стека повтора по умолчанию.
	DefaultRedoHistoryMaxSize = 32

	envPrefix = "MEDIATOR_"
)

// Config - конфигурация медиатора. Считывается один раз при создании.
type Config struct {
	// CommandHistoryMaxSize - максимальное число команд в истории.
	CommandHistoryMaxSize int `env:"COMMAND_HISTORY_MAX_SIZE" envDefault:"64"`
	// RedoHistoryMaxSize - максимальное число команд в стеке повтора.
	RedoHistoryMaxSize int `env:"REDO_HISTORY_MAX_SIZE" envDefault:"32"`
	// StrictHandlers превращает предупреждения CheckHandlers в ошибку.
	StrictHandlers bool `env:"STRICT_HANDLERS" envDefault:"false"`
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		CommandHistoryMaxSize: DefaultCommandHistoryMaxSize,
		RedoHistoryMaxSize:    DefaultRedoHistoryMaxSize,
	}
}

// LoadConfig читает конфигурацию из переменных окружения с префиксом MEDIATOR_.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет, что размеры истории положительны.
func (c Config) Validate() error {
	if c.CommandHistoryMaxSize <= 0 {
		return fmt.Errorf("CommandHistoryMaxSize = %d: %w", c.CommandHistoryMaxSize, request.ErrInvalidConfig)
	}
	if c.RedoHistoryMaxSize <= 0 {
		return fmt.Errorf("RedoHistoryMaxSize = %d: %w", c.RedoHistoryMaxSize, request.ErrInvalidConfig)
	}
	return nil
}
