// Copyright 2019 The go-ultiledger Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where and how the vault logs.
type Options struct {
	// file receiving the logs besides stderr
	Path string
	// human readable lines instead of JSON
	Console bool
	Debug   bool
	// fields attached to every entry, like the ledger identity
	Fields []interface{}
}

var (
	rootLogger *zap.SugaredLogger
	config     zap.Config
	fields     []interface{}
)

func init() {
	config = zap.NewProductionConfig()
	if err := build(); err != nil {
		panic(err)
	}
}

func build() error {
	// stacktraces only from DPanic so failed ledger
	// operations stay one line at Warn and Error
	logger, err := config.Build(zap.AddStacktrace(zapcore.DPanicLevel), zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	rootLogger = logger.Sugar().With(fields...)
	return nil
}

// Setup rebuilds the root logger from the options.
func Setup(opts Options) error {
	config.OutputPaths = []string{"stderr"}
	if opts.Path != "" {
		config.OutputPaths = append(config.OutputPaths, opts.Path)
	}
	config.Encoding = "json"
	config.EncoderConfig.EncodeTime = zapcore.EpochTimeEncoder
	if opts.Console {
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if opts.Debug {
		config.Level.SetLevel(zap.DebugLevel)
	} else {
		config.Level.SetLevel(zap.InfoLevel)
	}
	fields = opts.Fields
	return build()
}

// Sync flushes any buffered log entries.
func Sync() {
	rootLogger.Sync()
}

func Error(args ...interface{}) {
	rootLogger.Error(args...)
}

func Errorf(template string, args ...interface{}) {
	rootLogger.Errorf(template, args...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	rootLogger.Errorw(msg, keysAndValues...)
}

func Fatal(args ...interface{}) {
	rootLogger.Fatal(args...)
}

func Fatalf(template string, args ...interface{}) {
	rootLogger.Fatalf(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	rootLogger.Warnw(msg, keysAndValues...)
}

func Info(args ...interface{}) {
	rootLogger.Info(args...)
}

func Infof(template string, args ...interface{}) {
	rootLogger.Infof(template, args...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	rootLogger.Infow(msg, keysAndValues...)
}

func Debugw(msg string, keysAndValues ...interface{}) {
	rootLogger.Debugw(msg, keysAndValues...)
}
