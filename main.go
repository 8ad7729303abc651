package main

import (
	"os"

	"github.com/hojomatch/hojocrawl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
