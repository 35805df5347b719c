package main

import (
	"os"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
