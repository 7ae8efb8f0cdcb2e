package config

import "time"

// DefaultExtensions are the file types the ingester can extract.
var DefaultExtensions = []string{".txt", ".md", ".pdf", ".docx", ".html", ".htm", ".xlsx", ".odt", ".rtf"}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/db/docstore.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/kotae/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/kotae/data/indices/vectors.bin"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kotae/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.GeminiModel == "" {
		cfg.Embedding.GeminiModel = "gemini-embedding-001"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "GEMINI_API_KEY"
	}

	if cfg.Rerank.Provider == "" {
		cfg.Rerank.Provider = "onnx"
	}
	if cfg.Rerank.ModelPath == "" {
		cfg.Rerank.ModelPath = "/usr/local/var/kotae/data/models/ms-marco-MiniLM-L-12-v2.onnx"
	}
	if cfg.Rerank.MaxTokens == 0 {
		cfg.Rerank.MaxTokens = 512
	}
	if cfg.Rerank.Timeout == 0 {
		cfg.Rerank.Timeout = 3 * time.Second
	}
	if cfg.Rerank.OnFailure == "" {
		cfg.Rerank.OnFailure = RerankDegrade
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		if cfg.LLM.Provider == "gemini" {
			cfg.LLM.Model = "gemini-2.0-flash"
		} else {
			cfg.LLM.Model = "gpt-4o-mini"
		}
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.APIKeyEnv == "" {
		if cfg.LLM.Provider == "gemini" {
			cfg.LLM.APIKeyEnv = "GEMINI_API_KEY"
		} else {
			cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 2
	}
	if cfg.LLM.RequestsPerSecond == 0 {
		cfg.LLM.RequestsPerSecond = 5
	}
	if cfg.LLM.Burst == 0 {
		cfg.LLM.Burst = 10
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Retrieval.OverfetchRatio == 0 {
		cfg.Retrieval.OverfetchRatio = 5
	}
	if cfg.Retrieval.InitialK == 0 {
		cfg.Retrieval.InitialK = 20
	}
	if cfg.Retrieval.KeywordLimit == 0 {
		cfg.Retrieval.KeywordLimit = 10
	}

	if cfg.Guard.TopScoreMax == 0 {
		cfg.Guard.TopScoreMax = 0.45
	}
	if cfg.Guard.GoodHitScoreMax == 0 {
		cfg.Guard.GoodHitScoreMax = 0.55
	}
	if cfg.Guard.MinGoodHits == 0 {
		cfg.Guard.MinGoodHits = 2
	}
	if cfg.Guard.ConfScoreMin == 0 {
		cfg.Guard.ConfScoreMin = 0.2
	}
	if cfg.Guard.ConfScoreMax == 0 {
		cfg.Guard.ConfScoreMax = 0.6
	}
	if cfg.Guard.BaseWeight == 0 {
		cfg.Guard.BaseWeight = 1.0
	}
	if cfg.Guard.BonusPerHit == 0 {
		cfg.Guard.BonusPerHit = 0.05
	}
	if cfg.Guard.BonusCapHits == 0 {
		cfg.Guard.BonusCapHits = 3
	}
	if cfg.Guard.HighCut == 0 {
		cfg.Guard.HighCut = 0.75
	}
	if cfg.Guard.MediumCut == 0 {
		cfg.Guard.MediumCut = 0.5
	}

	if cfg.Context.MaxCharsPerDoc == 0 {
		cfg.Context.MaxCharsPerDoc = 900
	}
	if cfg.Context.MaxContextChars == 0 {
		cfg.Context.MaxContextChars = 3500
	}
	if cfg.Context.HardLimit == 0 {
		cfg.Context.HardLimit = 12000
	}

	if cfg.Command.MinConfidence == "" {
		cfg.Command.MinConfidence = "medium"
	}

	if cfg.Ingest.ParentChunkSize == 0 {
		cfg.Ingest.ParentChunkSize = 2000
	}
	if cfg.Ingest.ParentChunkOverlap == 0 {
		cfg.Ingest.ParentChunkOverlap = 200
	}
	if cfg.Ingest.ChildChunkSize == 0 {
		cfg.Ingest.ChildChunkSize = 600
	}
	if cfg.Ingest.ChildChunkOverlap == 0 {
		cfg.Ingest.ChildChunkOverlap = 100
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if cfg.Ingest.DefaultDomain == "" {
		cfg.Ingest.DefaultDomain = "general"
	}
	if cfg.Ingest.LockTimeout == 0 {
		cfg.Ingest.LockTimeout = 10 * time.Second
	}
	if cfg.Ingest.MaxFileBytes == 0 {
		cfg.Ingest.MaxFileBytes = 50 << 20
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = append([]string(nil), cfg.Ingest.Extensions...)
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}

	if cfg.Messages.NoEvidence == "" {
		cfg.Messages.NoEvidence = "No supporting evidence was found in the documents."
	}
	if cfg.Messages.InsufficientEvidence == "" {
		cfg.Messages.InsufficientEvidence = "The documents do not contain enough evidence to answer."
	}
	if cfg.Messages.NoCommand == "" {
		cfg.Messages.NoCommand = "No executable command was found."
	}
	if cfg.Messages.LowConfidence == "" {
		cfg.Messages.LowConfidence = "Confidence is too low to propose a command."
	}
	if cfg.Messages.ParseFailed == "" {
		cfg.Messages.ParseFailed = "The command proposal could not be interpreted."
	}
	if cfg.Messages.NotAllowed == "" {
		cfg.Messages.NotAllowed = "The proposed command is not allowed."
	}
}
