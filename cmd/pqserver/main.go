package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "pqserver.yml"
	k              = koanf.New(".")
)

// DefaultConfig is the configuration used for anything the config file
// does not set
func DefaultConfig() Config {
	return Config{
		Addr:        ":8000",
		DataDir:     ".",
		MaxUploadMB: 1024,
		Files:       []FileSetup{}}
}

func setupconfig() {
	k.Load(structs.Provider(DefaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `pqserver serves PicoQuant TCSPC data files over HTTP
The headers, resolution, mode and data of each file are decoded on request,
and the clients can leverage the excellent HTTP libraries for any
programming language.

Usage:
	pqserver <command>

Commands:
	run [config.yml]
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `pqserver is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

Files:
  - Endpoint: lab/run42
    Path: /data/run42.ht3

No two endpoints can have the same URL.  When Endpoint is empty the file name,
without its extension, is used.

URLs may look like any variation between "lab/run42" or "/lab/run42/*", the
leading and trailing slashes, as well as the *, are added by the server if missing.

Each file is served with the routes
	GET  header          JSON object of header keys
	GET  resolution      JSON map of curve to resolution in ps, -1 for TTTR data
	GET  mode            {"str": mode}
	GET  data            csv stream, query n, to-t2, markers
	GET  histogram.fits  interactive curves as a FITS image
	GET  stats           per-channel counts, mean and spread, query time, time-scale, n
	GET  checksum        {"str": crc32}
	GET  raw             the file itself
	GET  lock, POST lock {"bool": locked}

With AllowUpload set, POST /upload accepts a multipart "file" field, stores it
in DataDir and serves it at the endpoint returned as {"str": endpoint}.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("pqserver version %v\n", Version)
}

func run(args []string) {
	c := Config{}
	var err error
	if len(args) > 0 {
		c, err = LoadYaml(args[0])
		if c.Addr == "" {
			c.Addr = DefaultConfig().Addr
		}
	} else {
		err = k.Unmarshal("", &c)
	}
	if err != nil {
		log.Fatal(err)
	}
	if len(c.Files) == 0 && !c.AllowUpload {
		log.Fatal("no files to serve and uploads are not allowed")
	}
	mux := BuildMux(c)
	log.Println("now listening for requests at ", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, mux))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run(args[2:])
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
