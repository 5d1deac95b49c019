package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tphakala/sentinel-go/internal/conf"
	"github.com/tphakala/sentinel-go/internal/weather"
)

// Command creates the one-shot weather fetch command, handy for checking
// the OpenWeather configuration.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "weather",
		Short: "Fetch current outside conditions once",
		RunE: func(cmd *cobra.Command, args []string) error {
			service := weather.NewService(&settings.Weather.OpenWeather, nil)
			if !service.Enabled() {
				return fmt.Errorf("weather is not configured, set weather.openweather.enabled and apikey")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			data, err := service.Current(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", data.City, data)
			return nil
		},
	}
}
