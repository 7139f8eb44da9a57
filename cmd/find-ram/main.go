// find-ram prints the physical address ranges the memory map reports as System
// RAM, one per line, without capturing anything.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jaoeul/ram-snap/fault"
	"github.com/jaoeul/ram-snap/iomem"
)

const Usage = "find-ram [/proc/iomem]"

func main() {
	path := iomem.DefaultPath

	switch len(os.Args) {
	case 1:
	case 2:
		path = os.Args[1]
	default:
		log.Fatalf("usage: %s\n", Usage)
	}

	ranges, err := iomem.FindRAM(path, nil)
	if err != nil {
		log.Printf("failed to find system RAM: %v", err)
		os.Exit(fault.ExitCode(err))
	}

	for _, r := range ranges {
		fmt.Println(r)
	}
}
