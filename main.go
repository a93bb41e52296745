// The main package for the nft-metadata-parser executable.
package main

import (
	"github.com/JakeFAU/nft-metadata-parser/cmd"
)

func main() {
	cmd.Execute()
}
