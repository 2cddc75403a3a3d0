package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "newsagent"}

	root.AddCommand(runCMD(), serveCMD(), toolsCMD(), migrateCMD())
	_ = root.Execute()
}
