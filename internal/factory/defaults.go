package factory

import (
	"sync"

	"doxa/internal/agent"
	"doxa/internal/env"
)

var defaultsOnce sync.Once

// RegisterDefaults installs the built-in agent and environment constructors.
// Safe to call more than once; only the first call registers.
func RegisterDefaults() {
	defaultsOnce.Do(func() {
		// The registries are empty here, so none of these can collide.
		_ = RegisterEnvironment("static_linear", func(cfg Config) (env.Environment, error) {
			return env.NewStaticLinear(env.LinearConfig{
				TrueCoefficients: cfg.TrueCoefficients,
				NoiseVariance:    cfg.NoiseVariance,
				Seed:             cfg.Seed,
			})
		})
		_ = RegisterEnvironment("static_nonlinear", func(cfg Config) (env.Environment, error) {
			return env.NewStaticNonlinear(env.NonlinearConfig{
				Form:             env.NonlinearForm(cfg.NonlinearForm),
				TrueCoefficients: cfg.TrueCoefficients,
				NoiseVariance:    cfg.NoiseVariance,
				Seed:             cfg.Seed,
			})
		})

		_ = RegisterAgent("exact_linear", func(cfg Config) (agent.Agent, error) {
			return agent.NewExactLinear(agent.LinearConfig{
				FeatureDimension: cfg.FeatureDimension,
				NoiseVariance:    cfg.NoiseVariance,
				PriorMean:        cfg.PriorMean,
				PriorCovariance:  cfg.PriorCovariance,
			})
		})
		_ = RegisterAgent("exact_linear_flat_prior", func(cfg Config) (agent.Agent, error) {
			return agent.NewExactLinear(agent.LinearConfig{
				FeatureDimension: cfg.FeatureDimension,
				NoiseVariance:    cfg.NoiseVariance,
				UniformPrior:     true,
			})
		})
		_ = RegisterAgent("exact_nonlinear", func(cfg Config) (agent.Agent, error) {
			return agent.NewExactNonlinear(agent.NonlinearConfig{
				Form:             env.NonlinearForm(cfg.NonlinearForm),
				PolynomialDegree: cfg.PolynomialDegree,
				FeatureDimension: cfg.FeatureDimension,
				NoiseVariance:    cfg.NoiseVariance,
				PriorMean:        cfg.PriorMean,
				PriorCovariance:  cfg.PriorCovariance,
				UniformPrior:     cfg.UniformPrior,
			})
		})
		_ = RegisterAgent("linear_mle_agent", func(cfg Config) (agent.Agent, error) {
			return agent.NewLinearMLE(), nil
		})
		_ = RegisterAgent("linear_map_agent", func(cfg Config) (agent.Agent, error) {
			return agent.NewLinearMAP(agent.MAPConfig{
				PriorMean:       cfg.PriorMean,
				PriorCovariance: cfg.PriorCovariance,
				NoiseVariance:   cfg.NoiseVariance,
			})
		})
	})
}
