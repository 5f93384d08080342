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

package main

import (
	"encoding/json"
	"os"
)

// Config mirrors the CLI flags defined in main.go; a "-c" JSON file overrides them the
// same way kcptun's client/server config files do.
type Config struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	ConnectMS  int    `json:"connect_ms"`
	NoDelay    bool   `json:"nodelay"`
	KeepAlive  bool   `json:"keepalive"`
	ChunkSize  int    `json:"chunksize"`
	ReadMS     int    `json:"read_ms"`
	Write      string `json:"write"`
	Expect     string `json:"expect"`
	RRTimeoutMS int   `json:"rr_timeout_ms"`
	MaxBytes   int    `json:"maxbytes"`
	Log        string `json:"log"`
	Quiet      bool   `json:"quiet"`
	StatsLog   string `json:"statslog"`
	StatsSec   int    `json:"statssec"`
}

func parseJSONConfig(config *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(config)
}
