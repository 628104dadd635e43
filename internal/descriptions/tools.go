package descriptions

// Tool descriptions shown to MCP clients, with examples and workflows

const (
	EvalExtractFileDescription = `Extract the course, term and overall instructor rating from one course evaluation report PDF.

**When to use:** Need the numbers from a single evaluation report, e.g. to check one course or to debug a report that a directory run rejected.

**What you get:** Course code, instructor, year and semester from the front page, plus the mean, standard deviation, response count and the Poor..Excellent distribution of question 15 ("Taking everything into account, the instructor was:").

**Examples:**
• "Extract 2020-spring/CS4XX-01.pdf"
• "What was the overall rating in reports/fall-2019-cs101.pdf?"

**Notes:** Paths may be relative to the configured directory and must stay inside it. Reports without a recognisable front page or rating table return "No data extracted" with the reason.`

	EvalExtractDirectoryDescription = `Extract every evaluation report in a directory and combine their ratings.

**When to use:** Need the roll-up over a semester, a course, or a whole teaching history.

**What you get:** One line per extracted report, the documents that produced no data and why, and the combined summary: Top1 (share of Excellent), Top2 (share of Good or Excellent) and the mean on a 1 to 5 scale.

**Examples:**
• "Summarize all evaluations in 2021/"
• "Run the extractor over the configured directory"

**Common workflows:**
1. Directory review: eval_extract_directory → inspect failures → eval_extract_file on a failing report
2. Reporting: run the CLI in batch mode to write results.json → eval_summarize later`

	EvalSummarizeDescription = `Summarize a results.json file written by an earlier batch run without touching the PDFs.

**When to use:** Results were already extracted and only the combined Top1, Top2 and mean are needed.

**Examples:**
• "Summarize the results in output/"

**Notes:** Fails when the file is missing or holds no responses.`

	EvalRunsDescription = `List recent batch runs recorded in the run history database.

**When to use:** Need to know when reports were last extracted, how many documents a run produced, or how the summary moved between runs.

**What you get:** Newest first: run id, directory, start time, whether the run finished, the number of records and the run's Top1, Top2 and mean.

**Examples:**
• "When did we last process the 2021 reports?"
• "Show the last 5 runs"

**Notes:** Only available when the server is started with a database (--db).`

	EvalServerInfoDescription = `Get server information, the configured directory, the text backend and the available tools.

**When to use:** Start here to see which reports are available and how the server is configured.`
)
