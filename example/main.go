// Command blog is an example hxpage application.
//
//	go run . serve               render pages on each request
//	go run . prerender           write every page to dist/
//	go run . serve --static      serve dist/ without rendering
//
// Regenerate pages/manifest_gen.go after adding page files:
//
//	go run github.com/pthm/hxpage/cmd/hxpage generate
package main

import (
	"fmt"
	"os"

	"github.com/pthm/hxpage/example/pages"
	"github.com/pthm/hxpage/lib/cli"
)

func main() {
	if err := cli.NewCommand("blog", pages.Manifest()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
