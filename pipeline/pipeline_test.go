package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/kroma-labs/hedge-go/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_Run_Defaults(t *testing.T) {
	s := NewStage(WithRegistry(strategy.NewRegistry()))
	pc := &Context{
		RequestFn: func(ctx context.Context) (any, error) {
			return "ok", nil
		},
	}

	err := s.Run(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, "ok", pc.Artifact)
	assert.Equal(t, false, pc.Metrics["hedged"])
	assert.Equal(t, "off", pc.Metrics["strategy_kind"])
}

func TestStage_Run_MissingRequestFn(t *testing.T) {
	s := NewStage()
	err := s.Run(context.Background(), &Context{})
	require.Error(t, err)
}

func TestStage_Run_PropagatesFailure(t *testing.T) {
	s := NewStage(WithRegistry(strategy.NewRegistry()))
	pc := &Context{
		RequestFn: func(ctx context.Context) (any, error) {
			return nil, errors.New("downstream unavailable")
		},
		Strategy:  "fixed",
		DelayMS:   5,
		MaxHedges: 1,
		TimeoutMS: 200,
	}

	err := s.Run(context.Background(), pc)
	require.Error(t, err)
	assert.Nil(t, pc.Artifact)
}

func TestStage_Run_UnknownStrategy(t *testing.T) {
	s := NewStage()
	err := s.Run(context.Background(), &Context{
		RequestFn: func(ctx context.Context) (any, error) { return "x", nil },
		Strategy:  "quantum",
	})
	require.Error(t, err)
}
