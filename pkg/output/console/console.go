package console

import (
	"fmt"

	"github.com/dbinev/lis2mdl-to-mqtt/pkg/output"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/sensor"
)

type ConsoleOutput struct{}

func NewConsole() output.Output { return &ConsoleOutput{} }

func (c *ConsoleOutput) Publish(readings []sensor.Reading) error {
	for _, r := range readings {
		fmt.Print(output.FormatMagnetic(r))
		fmt.Print(output.FormatTemperature(r))
	}
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }
