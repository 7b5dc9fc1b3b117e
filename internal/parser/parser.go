// Package parser turns one line of shell input into a sequence of
// command.Pipeline values, one per &&/||-separated segment, following
// the teacher's internal/parser.Parse shape (env-var expansion,
// conditional splitting, buildSection/redirect token handling) but
// producing command.Stage/command.Pipeline instead of opened *os.File
// redirections, since file opening is the launcher's job (spec.md
// §4.3), not the parser's.
package parser

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"quash/internal/builtin"
	"quash/internal/command"
)

// Entry is one &&/||-separated segment of a parsed line: its pipeline,
// the pipeline's rendered text (for job-table and history display),
// and the conditional flags that govern whether the shell should run
// the next Entry at all.
type Entry struct {
	Pipeline command.Pipeline
	Rendered string
	NextAnd  bool
	NextOr   bool
}

// Parse expands environment variables in line, splits it on && and ||,
// and builds one Entry per segment.
func Parse(line string) ([]Entry, error) {
	line = expandEnv(line)
	line = strings.NewReplacer(
		"&&", " && ", "||", " || ",
		">>", " >> ", ">", " > ", "<", " < ",
	).Replace(line)

	var entries []Entry
	var nextAnd, nextOr bool

	segments := splitByConditionals(line)

	for i := 0; i < len(segments); i++ {
		segment := segments[i]
		if segment == "" || segment == "&&" || segment == "||" {
			continue
		}

		if i+1 < len(segments) {
			switch segments[i+1] {
			case "&&":
				nextAnd = true
			case "||":
				nextOr = true
			}
		}

		pipeline, err := buildPipeline(segment)
		if err != nil {
			return nil, err
		}

		entries = append(entries, Entry{
			Pipeline: pipeline,
			Rendered: pipeline.String(),
			NextAnd:  nextAnd,
			NextOr:   nextOr,
		})

		if nextAnd || nextOr {
			nextAnd, nextOr = false, false
			i++
		}
	}

	return entries, nil
}

// splitByConditionals scans line byte-by-byte and splits it into
// segments of plain text interleaved with "&&"/"||" operator tokens,
// kept verbatim from the teacher's internal/parser.splitByConditionals.
func splitByConditionals(line string) []string {
	var segments []string
	var b strings.Builder

	for i := 0; i < len(line); i++ {
		if i < len(line)-1 && line[i] == '&' && line[i+1] == '&' {
			segments = flushOperator(&b, "&&", segments)
			i++
			continue
		}
		if i < len(line)-1 && line[i] == '|' && line[i+1] == '|' {
			segments = flushOperator(&b, "||", segments)
			i++
			continue
		}
		b.WriteByte(line[i])
	}

	segments = append(segments, strings.TrimSpace(b.String()))
	return segments
}

func flushOperator(b *strings.Builder, operator string, segments []string) []string {
	if b.Len() > 0 {
		segments = append(segments, strings.TrimSpace(b.String()))
		b.Reset()
	}
	return append(segments, operator)
}

// buildPipeline splits one conditional segment on "|" into stages,
// recognizes a trailing "&" as backgrounding the whole pipeline, and
// classifies each stage's leading token into a command.Command.
func buildPipeline(segment string) (command.Pipeline, error) {
	segment = strings.TrimSpace(segment)

	background := false
	if strings.HasSuffix(segment, "&") && !strings.HasSuffix(segment, "&&") {
		background = true
		segment = strings.TrimSpace(strings.TrimSuffix(segment, "&"))
	}

	texts := strings.Split(segment, "|")
	var stages []command.Stage

	for i, text := range texts {
		tokens := strings.Fields(strings.TrimSpace(text))
		if len(tokens) == 0 {
			continue
		}

		var inputFile, outputFile string
		var append_ bool
		var err error

		if i == 0 && strings.Contains(text, "<") {
			inputFile, tokens, err = extractRedirect(tokens, "<")
			if err != nil {
				return command.Pipeline{}, err
			}
		}

		if i == len(texts)-1 && strings.Contains(text, ">") {
			op := ">"
			if strings.Contains(text, ">>") {
				op = ">>"
			}
			outputFile, tokens, err = extractRedirect(tokens, op)
			if err != nil {
				return command.Pipeline{}, err
			}
			append_ = op == ">>"
		}

		cmd, err := classify(tokens)
		if err != nil {
			return command.Pipeline{}, err
		}

		var flags command.Flag
		if i > 0 {
			flags |= command.PipeIn
		}
		if i < len(texts)-1 {
			flags |= command.PipeOut
		}
		if i == 0 && background {
			flags |= command.Background
		}

		stages = append(stages, command.Stage{
			Cmd:        cmd,
			InputFile:  inputFile,
			OutputFile: outputFile,
			Append:     append_,
			Flags:      flags,
		})
	}

	return command.Pipeline{Stages: stages}, nil
}

// extractRedirect finds operator in tokens, returning the filename
// that follows it and tokens with both removed.
func extractRedirect(tokens []string, operator string) (string, []string, error) {
	for i, tok := range tokens {
		if tok != operator {
			continue
		}
		if i+1 >= len(tokens) {
			return "", nil, fmt.Errorf("quash: parser: %s: missing filename", operator)
		}
		filename := tokens[i+1]
		cleaned := append([]string{}, tokens[:i]...)
		cleaned = append(cleaned, tokens[i+2:]...)
		return filename, cleaned, nil
	}
	return "", tokens, nil
}

// classify turns a stage's token list into a command.Command,
// recognizing the builtin names the spec gives parent-only and
// child-capable treatment and falling back to External otherwise.
func classify(tokens []string) (command.Command, error) {
	switch tokens[0] {
	case "exit":
		return command.NewExit(), nil

	case "echo":
		return command.NewEcho(tokens), nil

	case "pwd":
		return command.NewPwd(), nil

	case "jobs":
		return command.NewJobs(), nil

	case "ps":
		return command.NewPs(), nil

	case "cd":
		path := ""
		if len(tokens) > 1 {
			path = tokens[1]
		}
		return command.NewCd(path), nil

	case "export":
		return parseExport(tokens)

	case "kill":
		return parseKill(tokens)

	default:
		return command.NewExternal(tokens), nil
	}
}

// parseExport accepts both "export NAME=value" and "export NAME value",
// since the original_source grammar (parsing_interface.c) serializes
// the env var name and value as two independent tokens rather than a
// single NAME=value assignment.
func parseExport(tokens []string) (command.Command, error) {
	if len(tokens) < 2 {
		return command.Command{}, fmt.Errorf("quash: export: missing NAME")
	}
	if name, value, ok := strings.Cut(tokens[1], "="); ok {
		return command.NewExport(name, value), nil
	}
	if len(tokens) < 3 {
		return command.Command{}, fmt.Errorf("quash: export: missing value")
	}
	return command.NewExport(tokens[1], tokens[2]), nil
}

// parseKill expects "kill <signal> <job-id>", matching the original
// implementation's __stringify_kill_cmd token order.
func parseKill(tokens []string) (command.Command, error) {
	if len(tokens) != 3 {
		return command.Command{}, fmt.Errorf("quash: kill: usage: kill <signal> <job-id>")
	}
	sig, err := builtin.ResolveSignal(tokens[1])
	if err != nil {
		return command.Command{}, err
	}
	jobID, err := strconv.Atoi(tokens[2])
	if err != nil {
		return command.Command{}, fmt.Errorf("quash: kill: %s: invalid job id", tokens[2])
	}
	return command.NewKill(sig, jobID), nil
}

// expandEnv expands $VAR / ${VAR} references, plus the two pseudo-vars
// the teacher supports: $$ (shell pid) and $PPID (parent pid).
func expandEnv(line string) string {
	return os.Expand(line, func(key string) string {
		switch key {
		case "$":
			return strconv.Itoa(os.Getpid())
		case "PPID":
			return strconv.Itoa(os.Getppid())
		default:
			if val, ok := os.LookupEnv(key); ok {
				return val
			}
			return ""
		}
	})
}
