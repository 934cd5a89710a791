// Command hactl drives a hyperarray from the command line.
package main

import "github.com/rf-peixoto/hyperarray/hactl/cmd"

func main() {
	cmd.Execute()
}
