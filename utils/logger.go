package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu  sync.RWMutex
	logger = zap.NewNop()
	sugar  = logger.Sugar()
)

// InitLogger настраивает логирование в консоль и в файлы info.log и error.log
func InitLogger(level, dir string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("неверный уровень логирования %q: %v", level, err)
	}

	// Создаем директорию для логов, если она не существует
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %v", err)
	}

	infoFile, err := os.OpenFile(filepath.Join(dir, "info.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open info log file: %v", err)
	}
	errorFile, err := os.OpenFile(filepath.Join(dir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open error log file: %v", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stdout), lvl),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(infoFile), lvl),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(errorFile), zapcore.ErrorLevel),
	)

	SetLogger(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

// SetLogger заменяет глобальный логгер
func SetLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l
	sugar = l.Sugar()
}

// Logger возвращает глобальный логгер для структурированных записей
func Logger() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger.WithOptions(zap.AddCallerSkip(-1))
}

// SyncLogger сбрасывает буферы логгера
func SyncLogger() {
	logMu.RLock()
	defer logMu.RUnlock()
	_ = logger.Sync()
}

func currentSugar() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return sugar
}

// LogInfo логирует информационное сообщение
func LogInfo(format string, v ...interface{}) {
	currentSugar().Infof(format, v...)
}

// LogError логирует сообщение об ошибке
func LogError(format string, v ...interface{}) {
	currentSugar().Errorf(format, v...)
}

// LogDebug логирует отладочное сообщение
func LogDebug(format string, v ...interface{}) {
	currentSugar().Debugf(format, v...)
}

// LogOperation логирует операцию с длительностью
func LogOperation(operation string, startTime time.Time, err error) {
	duration := time.Since(startTime)
	if err != nil {
		currentSugar().Errorw("operation failed", zap.String("op", operation), zap.Duration("duration", duration), zap.Error(err))
	} else {
		currentSugar().Infow("operation completed", zap.String("op", operation), zap.Duration("duration", duration))
	}
}
