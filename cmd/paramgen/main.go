package main

import (
	"flag"
	"log"
	"os"

	"github.com/raccoon-os/rccn-usr/pkg/paramgen"
)

var (
	inFile  = flag.String("in", "", "Go source file declaring param-tagged structs")
	outFile = flag.String("out", "", "output path for the generated parameter table")
	pkgName = flag.String("pkg", "", "package name for the generated file")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	if *inFile == "" || *outFile == "" || *pkgName == "" {
		log.Fatalf("paramgen: -in, -out and -pkg are required")
	}

	src, err := os.ReadFile(*inFile)
	if err != nil {
		log.Fatalf("paramgen: reading %s: %v", *inFile, err)
	}

	structs, err := paramgen.ParseFile(*inFile, src)
	if err != nil {
		log.Fatalf("paramgen: %v", err)
	}
	log.Printf("paramgen: found %d struct(s) in %s", len(structs), *inFile)

	out, err := paramgen.Generate(*pkgName, structs)
	if err != nil {
		log.Fatalf("paramgen: %v", err)
	}

	if err := os.WriteFile(*outFile, out, 0o644); err != nil {
		log.Fatalf("paramgen: writing %s: %v", *outFile, err)
	}
	log.Printf("paramgen: wrote %s", *outFile)
}
