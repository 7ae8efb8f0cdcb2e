package intent

// actionVerbs are the English verbs that open an imperative request.
const actionVerbs = `(open|save|play|copy|show|search|set|switch|turn\s+(on|off)|navigate|go\s+to|launch|start|stop|notify|remind|change|display|confirm)`

// Built-in lexicons. Patterns are Go regular expressions matched against the trimmed question.
var (
	// explicitExplain wins over the command lexicon so that "설명해줘" is not read as an action.
	explicitExplain = []string{
		`설명해\s*(줘|주세요|봐)`,
		`알려\s*(줘|주세요)`,
		`(?i)^\s*(please\s+)?(explain|describe|tell me about)\b`,
	}

	commandHints = []string{
		`해줘`, `해주세요`, `해봐`, `해봐줘`,
		`켜줘`, `꺼줘`,
		`열어줘`, `닫아줘`,
		`재생해줘`, `틀어줘`,
		`저장해줘`, `복사해줘`,
		`이동해줘`, `바꿔줘`, `변경해줘`,
		`실행해줘`, `눌러줘`, `검색해줘`,
		`(?i)^\s*(please\s+)?` + actionVerbs + `\b`,
		`(?i)^\s*(can|could|would|will)\s+you\s+(please\s+)?` + actionVerbs + `\b`,
	}

	// politeRequest is settled by the model. It runs before explainHints so that a trailing
	// question mark does not turn "can you check the logs?" into explain.
	politeRequest = []string{
		`(?i)^\s*(can|could|would|will)\s+you\b`,
	}

	explainHints = []string{
		`뭐야`, `무슨`, `설명`, `원리`, `왜`, `어떻게`,
		`차이`, `정의`, `의미`, `개념`,
		`(?i)^\s*(what|why|how|when|where|which|who|is|are|does)\b`,
		`\?\s*$`,
	}
)
