// Command analyze_logs summarizes the server's info and error logs: logins,
// STK pushes and how callbacks were reconciled.
//
//	go run ./scripts -dir ./logs
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	TotalErrors      int
	TotalWarnings    int
	LoginSuccess     int
	LoginFailures    int
	RateLimited      int
	PushesSent       int
	PushesUnrecorded int
	PushesRejected   int
	GatewayDown      int
	CallbackOutcomes map[string]int
	InitiateByStatus map[int]int
	ErrorPatterns    map[string]int
}

var (
	msgRegex    = regexp.MustCompile(`msg=(?:"((?:[^"\\]|\\.)*)"|(\S+))`)
	levelRegex  = regexp.MustCompile(`level=(\w+)`)
	statusRegex = regexp.MustCompile(`status=(\d{3})`)
	numberRegex = regexp.MustCompile(`\d+`)
	quotedRegex = regexp.MustCompile(`'[^']*'|"[^"]*"`)
)

func main() {
	dir := flag.String("dir", "./logs", "log directory written by the server")
	flag.Parse()

	stats := &LogStats{
		CallbackOutcomes: make(map[string]int),
		InitiateByStatus: make(map[int]int),
		ErrorPatterns:    make(map[string]int),
	}

	scan(filepath.Join(*dir, "info", "info.log"), stats, analyzeInfoLine)
	scan(filepath.Join(*dir, "error", "error.log"), stats, analyzeErrorLine)

	printReport(stats)
}

func scan(logFile string, stats *LogStats, analyze func(level, msg, line string, stats *LogStats)) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		level := ""
		if m := levelRegex.FindStringSubmatch(line); m != nil {
			level = m[1]
		}
		msg := line
		if m := msgRegex.FindStringSubmatch(line); m != nil {
			msg = strings.ReplaceAll(m[1]+m[2], `\"`, `"`)
		}
		analyze(level, msg, line, stats)
	}
}

func analyzeInfoLine(level, msg, line string, stats *LogStats) {
	if level == "warning" {
		stats.TotalWarnings++
	}
	switch {
	case strings.HasPrefix(msg, "User logged in successfully"):
		stats.LoginSuccess++
	case strings.HasPrefix(msg, "Login attempt failed"):
		stats.LoginFailures++
	case strings.HasPrefix(msg, "Rate limit exceeded"):
		stats.RateLimited++
	case strings.HasPrefix(msg, "STK push ") && strings.Contains(msg, " sent for order "):
		stats.PushesSent++
	case strings.HasPrefix(msg, "M-Pesa rejected STK push"):
		stats.PushesRejected++
	case msg == "M-Pesa callback recorded":
		stats.CallbackOutcomes["recorded"]++
	case msg == "duplicate M-Pesa callback ignored":
		stats.CallbackOutcomes["duplicate"]++
	case msg == "request":
		if m := statusRegex.FindStringSubmatch(line); m != nil && strings.Contains(line, "path=/initiate-payment") {
			var code int
			fmt.Sscan(m[1], &code)
			stats.InitiateByStatus[code]++
		}
	}
}

func analyzeErrorLine(_, msg, _ string, stats *LogStats) {
	stats.TotalErrors++
	switch {
	case strings.HasPrefix(msg, "Orphaned M-Pesa callback"):
		stats.CallbackOutcomes["orphaned"]++
	case strings.HasPrefix(msg, "Rejected M-Pesa callback"), strings.Contains(msg, "has unusable metadata"):
		stats.CallbackOutcomes["malformed"]++
	case strings.Contains(msg, "not persisted"):
		stats.CallbackOutcomes["persist_failed"]++
	case strings.Contains(msg, "was sent but not recorded"):
		stats.PushesUnrecorded++
	case strings.HasPrefix(msg, "M-Pesa unreachable"):
		stats.GatewayDown++
	}
	stats.ErrorPatterns[errorPattern(msg)]++
}

// errorPattern strips ids, amounts and quoted values so similar errors group together.
func errorPattern(msg string) string {
	if i := strings.Index(msg, "; body="); i >= 0 {
		msg = msg[:i]
	}
	if i := strings.Index(msg, ": "); i >= 0 && i < len(msg)-2 {
		msg = msg[:i]
	}
	msg = quotedRegex.ReplaceAllString(msg, "?")
	return numberRegex.ReplaceAllString(msg, "N")
}

func printReport(stats *LogStats) {
	fmt.Println("\n=== Log Analysis Report ===")
	fmt.Println("Generated:", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Println("\n1. Authentication:")
	fmt.Printf("   Successful Logins: %d\n", stats.LoginSuccess)
	fmt.Printf("   Failed Logins: %d\n", stats.LoginFailures)
	fmt.Printf("   Rate Limited Requests: %d\n", stats.RateLimited)

	fmt.Println("\n2. STK Pushes:")
	fmt.Printf("   Sent and Recorded: %d\n", stats.PushesSent)
	fmt.Printf("   Sent but NOT Recorded: %d\n", stats.PushesUnrecorded)
	fmt.Printf("   Rejected by Gateway: %d\n", stats.PushesRejected)
	fmt.Printf("   Gateway Unreachable: %d\n", stats.GatewayDown)
	printCounts(stats.InitiateByStatus)

	fmt.Println("\n3. Callbacks:")
	for _, outcome := range []string{"recorded", "duplicate", "orphaned", "malformed", "persist_failed"} {
		fmt.Printf("   %s: %d\n", outcome, stats.CallbackOutcomes[outcome])
	}

	fmt.Println("\n4. Errors and Warnings:")
	fmt.Printf("   Total Errors: %d\n", stats.TotalErrors)
	fmt.Printf("   Total Warnings: %d\n", stats.TotalWarnings)

	fmt.Println("\n5. Most Common Errors:")
	printTopErrors(stats.ErrorPatterns, 5)
}

func printCounts(byStatus map[int]int) {
	codes := make([]int, 0, len(byStatus))
	for code := range byStatus {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("   /initiate-payment %d: %d\n", code, byStatus[code])
	}
}

func printTopErrors(errors map[string]int, limit int) {
	type errorCount struct {
		error string
		count int
	}

	var errorList []errorCount
	for err, count := range errors {
		errorList = append(errorList, errorCount{err, count})
	}

	sort.Slice(errorList, func(i, j int) bool {
		return errorList[i].count > errorList[j].count
	})

	for i, err := range errorList {
		if i >= limit {
			break
		}
		fmt.Printf("   %s: %d occurrences\n", err.error, err.count)
	}
}
