package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed words.txt questions.json
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToUpper(s))
	}
	return out, sc.Err()
}

// WordList returns the embedded default word list, uppercased.
func WordList() ([]string, error) {
	return readLines("words.txt")
}

// QuestionData returns the embedded default question pool as raw JSON.
func QuestionData() ([]byte, error) {
	return FS.ReadFile("questions.json")
}
