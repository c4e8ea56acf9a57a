package shellsplit

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple words",
			input: "aws s3 ls",
			want:  []string{"aws", "s3", "ls"},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "blank input",
			input: "   \t ",
			want:  nil,
		},
		{
			name:  "double quotes keep spaces",
			input: `aws s3 cp "my file.txt" s3://bucket/`,
			want:  []string{"aws", "s3", "cp", "my file.txt", "s3://bucket/"},
		},
		{
			name:  "single quotes keep spaces",
			input: `grep 'a b'`,
			want:  []string{"grep", "a b"},
		},
		{
			name:  "single quotes inside double quotes",
			input: `echo "it's fine"`,
			want:  []string{"echo", "it's fine"},
		},
		{
			name:  "escaped space outside quotes",
			input: `ls my\ file`,
			want:  []string{"ls", "my file"},
		},
		{
			name:  "escaped quote",
			input: `echo \"hi\"`,
			want:  []string{"echo", `"hi"`},
		},
		{
			name:  "backslash literal inside single quotes",
			input: `echo 'a\b'`,
			want:  []string{"echo", `a\b`},
		},
		{
			name:  "backslash before ordinary char in double quotes stays literal",
			input: `echo "a\b"`,
			want:  []string{"echo", `a\b`},
		},
		{
			name:  "escaped quote inside double quotes",
			input: `echo "a\"b"`,
			want:  []string{"echo", `a"b`},
		},
		{
			name:  "escaped backslash inside double quotes",
			input: `echo "a\\b"`,
			want:  []string{"echo", `a\b`},
		},
		{
			name:  "escaped dollar inside double quotes",
			input: `echo "a\$b"`,
			want:  []string{"echo", `a$b`},
		},
		{
			name:  "unterminated quote tolerated",
			input: `echo "unfinished`,
			want:  []string{"echo", "unfinished"},
		},
		{
			name:  "trailing backslash kept",
			input: `echo a\`,
			want:  []string{"echo", `a\`},
		},
		{
			name:  "multiple spaces collapse",
			input: "aws   ec2    describe-instances",
			want:  []string{"aws", "ec2", "describe-instances"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsPipeline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"plain command", "aws s3 ls", false},
		{"simple pipe", "aws s3 ls | grep bucket", true},
		{"pipe inside single quotes", "cmd 'a|b'", false},
		{"pipe inside double quotes", `aws logs filter "a|b"`, false},
		{"escaped pipe", `echo a\|b`, false},
		{"pipe after quoted section", `echo 'a|b' | wc -l`, true},
		{"empty string", "", false},
		{"trailing pipe", "aws s3 ls |", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPipeline(tt.input); got != tt.want {
				t.Errorf("IsPipeline(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitPipeline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "two stages",
			input: "aws s3 ls | grep bucket",
			want:  []string{"aws s3 ls", "grep bucket"},
		},
		{
			name:  "no pipe is single stage",
			input: "aws s3 ls",
			want:  []string{"aws s3 ls"},
		},
		{
			name:  "quoted pipe not a separator",
			input: `aws logs filter 'a|b' | wc -l`,
			want:  []string{`aws logs filter 'a|b'`, "wc -l"},
		},
		{
			name:  "consecutive pipes give empty stage",
			input: "aws s3 ls || grep x",
			want:  []string{"aws s3 ls", "", "grep x"},
		},
		{
			name:  "trailing pipe gives empty stage",
			input: "aws s3 ls |",
			want:  []string{"aws s3 ls", ""},
		},
		{
			name:  "escapes retained",
			input: `echo a\|b | wc -c`,
			want:  []string{`echo a\|b`, "wc -c"},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPipeline(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitPipeline(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

// Joining stages with pipes and splitting again must recover the stages
// exactly, as long as no stage contains an unescaped pipe or unbalanced
// quote.
func TestSplitPipelineRoundTrip(t *testing.T) {
	cases := [][]string{
		{"aws s3 ls"},
		{"aws s3 ls", "grep bucket", "sort"},
		{"aws ec2 describe-instances --output text", "head -5", "wc -l"},
		{`aws logs filter 'a|b'`, "jq .events"},
	}

	for _, stages := range cases {
		joined := strings.Join(stages, " | ")
		got := SplitPipeline(joined)
		if !reflect.DeepEqual(got, stages) {
			t.Errorf("round trip of %q = %#v, want %#v", joined, got, stages)
		}
	}
}
