// Package logging builds the zerolog loggers that stages are given through
// stage.WithLogger, from a Config loaded with viper.
package logging
