package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/mixy/pkg/archive"
	"github.com/platinummonkey/mixy/pkg/mixin"
)

// Packs a directory of class units into an archive
func main() {
	src := flag.String("src", ".", "Directory to pack")
	out := flag.String("out", "", "Archive to write")
	mainClass := flag.String("main-class", "", "Entry point class written to manifest.yaml")
	name := flag.String("name", "", "Archive name written to manifest.yaml")
	version := flag.String("version", "", "Archive version written to manifest.yaml")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	check := flag.Bool("check", false, "Validate mixin.yaml, print its normalized form and exit without packing")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if *check {
		normalized, err := normalizeDescriptor(*src)
		if err != nil {
			logger.Fatalf("Invalid mixin descriptor: %v", err)
		}
		if normalized == nil {
			logger.Infof("No %s in %s", archive.DescriptorName, *src)
			return
		}
		os.Stdout.Write(normalized)
		return
	}

	if *out == "" {
		fmt.Fprintln(os.Stderr, "Usage: mixy-pack -src <dir> -out <archive> [-main-class <class>] | mixy-pack -check -src <dir>")
		os.Exit(1)
	}

	var manifest *archive.Manifest
	if *mainClass != "" {
		manifest = &archive.Manifest{MainClass: *mainClass, Name: *name, Version: *version}
		if err := archive.ValidateManifest(manifest); err != nil {
			logger.Fatalf("Invalid manifest: %v", err)
		}
	}

	if _, err := normalizeDescriptor(*src); err != nil {
		logger.Fatalf("Invalid mixin descriptor: %v", err)
	}

	if err := archive.Pack(*out, *src, manifest); err != nil {
		logger.Fatalf("Failed to pack %s: %v", *src, err)
	}

	logger.Infof("Packed %s into %s", *src, *out)
}

// normalizeDescriptor validates mixin.yaml when the directory has one and
// returns it re-encoded with comments and unknown keys dropped. It returns nil
// when there is no descriptor.
func normalizeDescriptor(dir string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, archive.DescriptorName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	d, err := mixin.ParseDescriptor(data)
	if err != nil {
		return nil, err
	}
	if errs := mixin.ValidateDescriptor(d); len(errs) > 0 {
		return nil, fmt.Errorf("%v", errs)
	}
	return mixin.MarshalDescriptor(d)
}
