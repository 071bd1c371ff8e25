package client

import (
	"bufio"
	"io"
	"net"
	"testing"

	"github.com/duohttp/duohttp/header"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveOnce(t *testing.T, ln net.Listener, response string) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		br := bufio.NewReader(conn)
		for {
			line, err := br.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		_, _ = conn.Write([]byte(response))
	}()
}

func TestClientDoReadsPlainResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serveOnce(t, ln, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello")

	c := NewClient(nil, zerolog.Nop())
	defer c.Close()

	res, err := c.Do(&Request{
		Method:  "GET",
		Scheme:  "http",
		Host:    ln.Addr().String(),
		Path:    "/",
		Headers: header.NewMap(),
	})
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestClientDoFollowsSameOriginRedirect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	addr := ln.Addr().String()

	go func() {
		conn1, err := ln.Accept()
		if err != nil {
			return
		}
		br := bufio.NewReader(conn1)
		for {
			line, err := br.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		_, _ = conn1.Write([]byte("HTTP/1.1 302 Found\r\nLocation: http://" + addr + "/next\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"))
		conn1.Close()

		conn2, err := ln.Accept()
		if err != nil {
			return
		}
		br2 := bufio.NewReader(conn2)
		for {
			line, err := br2.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		_, _ = conn2.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: close\r\n\r\nok"))
		conn2.Close()
	}()

	c := NewClient(nil, zerolog.Nop())
	defer c.Close()

	res, err := c.Do(&Request{
		Method:  "GET",
		Scheme:  "http",
		Host:    addr,
		Path:    "/",
		Headers: header.NewMap(),
	})
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestTargetKeyDistinguishesTLS(t *testing.T) {
	plain := parseTarget("example.com:80", false)
	secure := parseTarget("example.com:443", true)
	assert.NotEqual(t, plain.key(), secure.key())
}
