// Command duohttpd is a minimal demo server exercising the server
// package: one default virtual host, plain-text echo on POST, a
// canned greeting otherwise.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/duohttp/duohttp/server"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

func main() {
	addr := flag.String("addr", ":8080", "address to listen on")
	flag.Parse()

	color.NoColor = !isatty.IsTerminal(os.Stdout.Fd())
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	s := server.NewServer(echoHandler, log)

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("listen: %s", err))
		os.Exit(1)
	}

	fmt.Println(color.GreenString("duohttpd listening on %s", ln.Addr()))
	if err := s.Serve(ln); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("serve: %s", err))
		os.Exit(1)
	}
}

func echoHandler(w server.ResponseWriter, r *server.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if r.Method == "POST" {
		buf := make([]byte, 4096)
		w.WriteHeader(200)
		for {
			n, err := r.Body.Read(buf)
			if n > 0 {
				_, _ = w.Write(buf[:n])
			}
			if err != nil {
				break
			}
		}
		return
	}

	w.WriteHeader(200)
	_, _ = w.Write([]byte(fmt.Sprintf("hello from duohttpd, proto %s\n", r.Proto)))
}
