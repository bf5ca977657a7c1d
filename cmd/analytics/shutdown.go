package main

import (
	"context"

	"go.uber.org/zap"
)

// shutdownSequence stops every input before closing any output, so a record
// still in flight never reaches a closed sink.
type shutdownSequence struct {
	inputs  []namedStop
	outputs []namedClose
	logger  *zap.Logger
}

type namedStop struct {
	name string
	stop func(ctx context.Context) error
}

type namedClose struct {
	name  string
	close func() error
}

// addInput registers an ingestion path. stop must return only once the path's
// in-flight records are processed.
func (s *shutdownSequence) addInput(name string, stop func(ctx context.Context) error) {
	s.inputs = append(s.inputs, namedStop{name, stop})
}

func (s *shutdownSequence) addOutput(name string, closeFn func() error) {
	s.outputs = append(s.outputs, namedClose{name, closeFn})
}

func (s *shutdownSequence) run(ctx context.Context) {
	for _, in := range s.inputs {
		if err := in.stop(ctx); err != nil {
			s.logger.Warn("stop input", zap.String("input", in.name), zap.Error(err))
		}
	}
	for _, out := range s.outputs {
		if err := out.close(); err != nil {
			s.logger.Warn("close sink", zap.String("sink", out.name), zap.Error(err))
		}
	}
}

// waitThen waits for done, then runs closeFn.
func waitThen(done <-chan struct{}, closeFn func() error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		return closeFn()
	}
}
