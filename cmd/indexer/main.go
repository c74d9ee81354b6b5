package main

import (
	"os"

	"github.com/DRSN-tech/ecofinds/internal/indexer"
)

func main() {
	os.Exit(indexer.Execute())
}
