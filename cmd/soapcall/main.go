// soapcall - command line SOAP client
package main

import (
	"fmt"
	"os"

	"github.com/soapcall/soapcall/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
