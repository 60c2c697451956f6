// Copyright 2025 Jack Bister
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// ascdunk generates synthetic ASC recordings for benchmarking and manual
// testing of asclog. The files are structurally valid but the gaze data is
// random walk noise.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/brianvoe/gofakeit"
)

var messageTemplates = []string{
	"TRIALID ###",
	"blank_screen onset",
	"stimulus_onset cond=##",
	"{hacker.verb} {hacker.noun}",
	"response key=# rt=###",
}

func main() {
	numFiles := flag.Int("numFiles", 1, "The number of recordings to generate. The files will be named asc-*.asc where * is an increasing number.")
	numBlocks := flag.Int("blocks", 3, "The number of recording blocks per file.")
	numSamples := flag.Int("samples", 5000, "The number of samples per block.")
	rate := flag.Int("rate", 500, "The declared sample rate in Hz. Must divide 1000.")
	binocular := flag.Bool("binocular", false, "Generate a binocular recording.")
	flag.Parse()

	if 1000%*rate != 0 {
		log.Fatalf("rate %v does not divide 1000", *rate)
	}

	for i := 0; i < *numFiles; i++ {
		filename := "asc-" + strconv.Itoa(i) + ".asc"
		if err := writeRecording(filename, *numBlocks, *numSamples, *rate, *binocular); err != nil {
			log.Fatalf("got error when writing %v: %v", filename, err)
		}
		log.Printf("wrote %v", filename)
	}
}

func writeRecording(filename string, blocks, samples, rate int, binocular bool) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)

	eyes := "LEFT"
	if binocular {
		eyes = "LEFT RIGHT"
	}
	fmt.Fprintf(w, "** CONVERTED FROM %s.edf\n", filename)
	fmt.Fprintf(w, "** DATE: %s\n", gofakeit.Date().Format("Mon Jan  2 15:04:05 2006"))
	fmt.Fprintf(w, "** TYPE: EDF_FILE BINARY EVENT SAMPLE TAGGED\n")
	fmt.Fprintf(w, "** VERSION: EYELINK II 1\n")
	fmt.Fprintf(w, "** SOURCE: EYELINK CL\n")
	fmt.Fprintf(w, "** EYELINK II CL v5.04 Jan 25 2018\n")
	fmt.Fprintf(w, "MSG 0 DISPLAY_COORDS 0 0 1023 767\n")
	fmt.Fprintf(w, "MSG 0 ELCLCFG MTABLER\n")
	fmt.Fprintf(w, "SAMPLES\tGAZE\t%s\tRATE\t%d.00\tTRACKING\tCR\tFILTER\t2\n", eyes, rate)
	fmt.Fprintf(w, "EVENTS\tGAZE\t%s\tRATE\t%d.00\tTRACKING\tCR\tFILTER\t2\n", eyes, rate)
	fmt.Fprintf(w, "PUPIL\tAREA\n")

	t := 1000000
	step := 1000 / rate
	x, y := 512.0, 384.0
	for b := 0; b < blocks; b++ {
		fmt.Fprintf(w, "START\t%d \t%s\tSAMPLES\tEVENTS\n", t, eyes)
		fixStart := t
		for s := 0; s < samples; s++ {
			x += float64(gofakeit.Number(-30, 30)) / 10
			y += float64(gofakeit.Number(-30, 30)) / 10
			ps := float64(gofakeit.Number(900, 1100))
			if binocular {
				fmt.Fprintf(w, "%d\t  %.1f\t  %.1f\t %.0f\t  %.1f\t  %.1f\t %.0f\t.....\n", t, x, y, ps, x+2, y+1, ps-20)
			} else {
				fmt.Fprintf(w, "%d\t  %.1f\t  %.1f\t %.0f\t...\n", t, x, y, ps)
			}
			t += step

			if s > 0 && s%500 == 0 {
				fmt.Fprintf(w, "MSG\t%d %s\n", t, gofakeit.Generate(gofakeit.RandString(messageTemplates)))
			}
			if s > 0 && s%1000 == 0 {
				fmt.Fprintf(w, "EFIX L   %d\t%d\t%d\t  %.1f\t  %.1f\t  %.0f\n", fixStart, t, t-fixStart, x, y, ps)
				sx, sy := x, y
				x += float64(gofakeit.Number(-100, 100))
				y += float64(gofakeit.Number(-100, 100))
				fmt.Fprintf(w, "ESACC L  %d\t%d\t%d\t  %.1f\t  %.1f\t  %.1f\t  %.1f\t%.2f\t%d\n",
					t, t+20, 20, sx, sy, x, y, float64(gofakeit.Number(10, 90))/10, gofakeit.Number(100, 500))
				t += 20
				fixStart = t
			}
		}
		fmt.Fprintf(w, "END\t%d \tSAMPLES\tEVENTS\n", t)
		// gap between blocks
		t += 1000
	}
	return w.Flush()
}
