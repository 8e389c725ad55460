package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init inicializa el singleton. Idempotente: solo la primera llamada tiene
// efecto. Lo llama main antes de levantar cualquier componente.
func Init(cfg Config) {
	once.Do(func() {
		instance = build(cfg)
	})
}

// L retorna el singleton. Si nadie llamó Init, construye uno por defecto
// (dev, info); los tests dependen de esto para no configurar nada.
func L() *zap.Logger {
	if instance == nil {
		Init(Config{Env: "dev", Level: "info"})
	}
	return instance
}

// Named retorna un logger con nombre de componente ("engine", "mint",
// "http"). El nombre identifica el origen de cada línea.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// With retorna un logger con campos persistentes, por ejemplo el seat_id de
// un watcher.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Sync flushea buffers pendientes. main lo difiere antes de salir.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}
