package service

import (
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"go.uber.org/fx"
)

var ConfigModule = fx.Module("config", fx.Provide(
	variables.Load,
))
