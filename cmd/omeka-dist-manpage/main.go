package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/ngc-omeka/omeka-dist/internal/cli"
	"github.com/ngc-omeka/omeka-dist/internal/version"
)

func main() {
	rootCmd := cli.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "OMEKA-DIST",
		Section: "1",
		Source:  "omeka-dist " + version.Version,
		Manual:  "omeka-dist manual",
	}

	err := doc.GenMan(rootCmd, header, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
