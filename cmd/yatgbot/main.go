// Command yatgbot runs the bots defined in a YAML file side by side.
//
//	YATGBOT_BOTS_FILE=bots.yaml yatgbot run
//	yatgbot check
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
