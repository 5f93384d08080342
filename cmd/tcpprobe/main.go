// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Command tcpprobe is a thin demo harness around the tcpclient library: it
// dials a line-oriented TCP peer and either streams Data events to stdout
// or runs a single write-and-read exchange, the same role kcptun's own
// client/main.go plays for smux.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	tcpclient "github.com/devioarts/go-tcpclient-core"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "tcpprobe"
	myApp.Usage = "connect to a line-oriented TCP peer and stream or request/response against it"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{Name: "host", Value: "127.0.0.1", Usage: "peer host"},
		cli.IntFlag{Name: "port", Value: tcpclient.DefaultPort, Usage: "peer port"},
		cli.IntFlag{Name: "connect-ms", Value: tcpclient.DefaultConnectTimeoutMS, Usage: "connect deadline in ms"},
		cli.BoolTFlag{Name: "nodelay", Usage: "disable Nagle (default true; --nodelay=false to turn off)"},
		cli.BoolTFlag{Name: "keepalive", Usage: "enable TCP keepalive (default true; --keepalive=false to turn off)"},
		cli.IntFlag{Name: "chunksize", Value: tcpclient.DefaultChunkSize, Usage: "max bytes per Data event in streaming mode"},
		cli.IntFlag{Name: "read-ms", Value: int(tcpclient.DefaultReadTimeout / time.Millisecond), Usage: "stream reader idle tick, ms"},
		cli.StringFlag{Name: "write", Usage: "payload to send; if set, runs one write-and-read instead of streaming"},
		cli.StringFlag{Name: "expect", Usage: "hex pattern (optional 0x prefix) that ends the write-and-read wait early"},
		cli.IntFlag{Name: "rr-timeout-ms", Value: tcpclient.DefaultRRTimeoutMS, Usage: "write-and-read deadline, ms"},
		cli.IntFlag{Name: "maxbytes", Value: tcpclient.DefaultMaxBytes, Usage: "write-and-read response cap"},
		cli.StringFlag{Name: "log", Usage: "specify a log file to output, default goes to stderr"},
		cli.BoolFlag{Name: "quiet", Usage: "suppress connect/disconnect log lines"},
		cli.StringFlag{Name: "statslog", Usage: "collect stats to file, aware of timeformat in golang, like: ./stats-20060102.log"},
		cli.IntFlag{Name: "statssec", Value: 60, Usage: "stats collect period, in seconds"},
		cli.StringFlag{Name: "c", Usage: "config from json file, which will override the command from shell"},
	}
	myApp.Action = run

	if err := myApp.Run(os.Args); err != nil {
		checkError(err)
	}
}

func run(c *cli.Context) error {
	config := Config{
		Host:        c.String("host"),
		Port:        c.Int("port"),
		ConnectMS:   c.Int("connect-ms"),
		NoDelay:     c.Bool("nodelay"),
		KeepAlive:   c.Bool("keepalive"),
		ChunkSize:   c.Int("chunksize"),
		ReadMS:      c.Int("read-ms"),
		Write:       c.String("write"),
		Expect:      c.String("expect"),
		RRTimeoutMS: c.Int("rr-timeout-ms"),
		MaxBytes:    c.Int("maxbytes"),
		Log:         c.String("log"),
		Quiet:       c.Bool("quiet"),
		StatsLog:    c.String("statslog"),
		StatsSec:    c.Int("statssec"),
	}

	if c.String("c") != "" {
		if err := parseJSONConfig(&config, c.String("c")); err != nil {
			return err
		}
	}

	var logOut io.Writer // left nil (not a nil *os.File) so the client falls back to stderr
	if config.Log != "" {
		f, err := os.OpenFile(config.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}

	listener := &printListener{quiet: config.Quiet}
	client := tcpclient.NewClient(listener)
	client.SetLogOutput(logOut, config.Quiet)

	if err := client.Connect(tcpclient.ConnectParams{
		Host:      config.Host,
		Port:      config.Port,
		Timeout:   time.Duration(config.ConnectMS) * time.Millisecond,
		NoDelay:   config.NoDelay,
		KeepAlive: config.KeepAlive,
	}); err != nil {
		return errors.Wrap(err, "connect")
	}
	defer client.Disconnect()

	color.Green("connected to %s:%d", config.Host, config.Port)

	stop := make(chan struct{})
	if config.StatsLog != "" {
		logger := &tcpclient.StatsLogger{Path: config.StatsLog, Interval: time.Duration(config.StatsSec) * time.Second}
		go func() {
			if err := logger.Run(client, stop); err != nil {
				color.Red("stats logger: %v", err)
			}
		}()
		defer close(stop)
	}

	if config.Write != "" {
		return runRequestResponse(client, config)
	}
	return runStream(client, config)
}

func runRequestResponse(client *tcpclient.Client, config Config) error {
	expect, err := tcpclient.ParseExpect(nil, config.Expect)
	if err != nil {
		color.Red("bad -expect value: %v", err)
		return err
	}

	result, err := client.WriteAndRead(tcpclient.WriteAndReadParams{
		Data:     []byte(config.Write),
		Timeout:  time.Duration(config.RRTimeoutMS) * time.Millisecond,
		MaxBytes: config.MaxBytes,
		Expect:   expect,
	})
	if err != nil && !tcpclient.IsKind(err, tcpclient.KindTimeout) {
		return errors.Wrap(err, "write-and-read")
	}
	if err != nil {
		color.Yellow("write-and-read timed out after %d bytes", len(result.Data))
	}
	fmt.Printf("sent=%d read=%d matched=%v\n%s\n", result.BytesSent, result.BytesRead, result.Matched, result.Data)
	return nil
}

func runStream(client *tcpclient.Client, config Config) error {
	if _, err := client.StartRead(tcpclient.StartReadParams{
		ChunkSize:   config.ChunkSize,
		ReadTimeout: time.Duration(config.ReadMS) * time.Millisecond,
	}); err != nil {
		return errors.Wrap(err, "start-read")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig

	client.StopRead()
	return nil
}

// printListener renders Data/Disconnect events to stdout, the same role
// kcptun's "stream open/close" log lines play, gated by the same quiet flag.
type printListener struct {
	quiet bool
}

func (l *printListener) OnData(ev tcpclient.DataEvent) {
	fmt.Printf("%s", ev.Data)
}

func (l *printListener) OnDisconnect(ev tcpclient.DisconnectEvent) {
	if l.quiet {
		return
	}
	if ev.Err != nil {
		color.Red("disconnected: %s (%v)", ev.Reason, ev.Err)
		return
	}
	color.Yellow("disconnected: %s", ev.Reason)
}

func checkError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(-1)
	}
}
