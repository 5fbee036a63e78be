// Command urcuisine is a terminal client for the urcuisine recipe API.
package main

import "github.com/urcuisine/urcuisine/cmd/urcuisine/cmd"

func main() {
	cmd.Execute()
}
