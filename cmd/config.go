package main

import "time"

type Config struct {
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	DispatchTimeout   time.Duration `env:"DISPATCH_TIMEOUT,required=true"`
	StaleBufferSize   int           `env:"STALE_BUFFER_SIZE,required=true"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,required=true"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`
}
