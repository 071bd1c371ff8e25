// Command duohttpc is a minimal demo client exercising the client
// package: fetch a URL, print status and body, colorized when the
// output is a terminal.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/duohttp/duohttp/client"
	"github.com/duohttp/duohttp/header"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

func main() {
	flag.Parse()
	target := flag.Arg(0)
	if target == "" {
		fmt.Fprintln(os.Stderr, "usage: duohttpc <url>")
		os.Exit(2)
	}

	color.NoColor = !isatty.IsTerminal(os.Stdout.Fd())

	scheme, hostpath, ok := strings.Cut(target, "://")
	if !ok {
		scheme, hostpath = "http", target
	}
	host, path, ok := strings.Cut(hostpath, "/")
	if !ok {
		path = ""
	}
	path = "/" + path

	c := client.NewClient(nil, zerolog.Nop())
	defer c.Close()

	res, err := c.Do(&client.Request{
		Method:  "GET",
		Scheme:  scheme,
		Host:    host,
		Path:    path,
		Headers: header.NewMap(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("request failed: %s", err))
		os.Exit(1)
	}
	defer res.Body.Close()

	statusColor := color.GreenString
	if res.StatusCode >= 400 {
		statusColor = color.RedString
	} else if res.StatusCode >= 300 {
		statusColor = color.YellowString
	}
	fmt.Println(statusColor("%d", res.StatusCode))

	body, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("read body: %s", err))
		os.Exit(1)
	}
	os.Stdout.Write(body)
}
