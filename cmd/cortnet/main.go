// cortnet provisions a host bridge and connects network namespaces to it.
package main

import (
	"github.com/cort-runtime/cortnet/log"
	"github.com/spf13/cobra"
)

func main() {
	err := newRootCmd(buildDeps).Execute()
	// CheckErr exits without running deferred calls.
	_ = log.Logger.Sync()
	cobra.CheckErr(err)
}
