package main

import "time"

func randomSeed() int64 { return time.Now().UnixNano() }
