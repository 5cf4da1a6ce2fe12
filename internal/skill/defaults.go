package skill

var defaultEntries = []Entry{
	// languages
	{Name: "python", Aliases: []string{"python3", "py3"}, Resources: []string{"https://docs.python.org/3/tutorial/"}},
	{Name: "go", Aliases: []string{"golang"}, Ambiguous: true, Resources: []string{"https://go.dev/tour/", "https://go.dev/doc/effective_go"}},
	{Name: "java", Resources: []string{"https://dev.java/learn/"}},
	{Name: "javascript", Aliases: []string{"js", "ecmascript", "es6"}, Resources: []string{"https://developer.mozilla.org/en-US/docs/Web/JavaScript/Guide"}},
	{Name: "typescript", Aliases: []string{"ts"}, Resources: []string{"https://www.typescriptlang.org/docs/handbook/intro.html"}},
	{Name: "rust", Resources: []string{"https://doc.rust-lang.org/book/"}},
	{Name: "c++", Aliases: []string{"cpp", "cplusplus"}},
	{Name: "c#", Aliases: []string{"csharp", ".net", "dotnet"}},
	{Name: "c", Ambiguous: true},
	{Name: "r", Ambiguous: true, Aliases: []string{"rlang", "rstats"}},
	{Name: "ruby"},
	{Name: "php"},
	{Name: "swift"},
	{Name: "kotlin"},
	{Name: "scala"},
	{Name: "dart"},
	{Name: "elixir"},
	{Name: "haskell"},
	{Name: "shell", Aliases: []string{"bash", "zsh", "shell scripting"}},
	{Name: "sql", Aliases: []string{"plpgsql", "tsql"}},
	{Name: "html", Aliases: []string{"html5"}},
	{Name: "css", Aliases: []string{"css3", "scss", "sass"}},

	// frameworks and libraries
	{Name: "django"},
	{Name: "flask"},
	{Name: "fastapi"},
	{Name: "react", Aliases: []string{"react.js", "reactjs"}, Resources: []string{"https://react.dev/learn"}},
	{Name: "vue", Aliases: []string{"vue.js", "vuejs"}},
	{Name: "angular", Aliases: []string{"angularjs"}},
	{Name: "next.js", Aliases: []string{"nextjs"}},
	{Name: "node.js", Aliases: []string{"nodejs", "node"}},
	{Name: "express", Aliases: []string{"express.js", "expressjs"}, Ambiguous: true},
	{Name: "spring", Aliases: []string{"spring boot", "springboot", "spring framework"}, Ambiguous: true},
	{Name: "flutter"},
	{Name: "pandas"},
	{Name: "numpy"},
	{Name: "scikit-learn", Aliases: []string{"sklearn"}},
	{Name: "tensorflow"},
	{Name: "pytorch", Aliases: []string{"torch"}},
	{Name: "spark", Aliases: []string{"pyspark", "apache spark"}},
	{Name: "airflow", Aliases: []string{"apache airflow"}},

	// infrastructure and tooling
	{Name: "docker", Aliases: []string{"dockerfile", "containerization"}, Resources: []string{"https://docs.docker.com/get-started/"}},
	{Name: "kubernetes", Aliases: []string{"k8s", "helm"}, Resources: []string{"https://kubernetes.io/docs/tutorials/kubernetes-basics/"}},
	{Name: "terraform", Aliases: []string{"hcl"}, Resources: []string{"https://developer.hashicorp.com/terraform/tutorials"}},
	{Name: "ansible"},
	{Name: "aws", Aliases: []string{"amazon web services", "ec2", "s3"}, Resources: []string{"https://aws.amazon.com/training/"}},
	{Name: "gcp", Aliases: []string{"google cloud", "google cloud platform", "bigquery"}},
	{Name: "azure", Aliases: []string{"microsoft azure"}},
	{Name: "linux"},
	{Name: "git", Aliases: []string{"github", "gitlab"}},
	{Name: "ci/cd", Aliases: []string{"continuous integration", "continuous delivery", "github actions", "jenkins", "gitlab ci"}},
	{Name: "nginx"},
	{Name: "prometheus"},
	{Name: "grafana"},

	// data stores and messaging
	{Name: "postgresql", Aliases: []string{"postgres", "psql"}},
	{Name: "mysql", Aliases: []string{"mariadb"}},
	{Name: "mongodb", Aliases: []string{"mongo"}},
	{Name: "redis"},
	{Name: "elasticsearch", Aliases: []string{"opensearch"}},
	{Name: "kafka", Aliases: []string{"apache kafka"}},
	{Name: "rabbitmq"},

	// practices and fields
	{Name: "rest", Aliases: []string{"rest api", "restful", "rest apis"}},
	{Name: "graphql"},
	{Name: "grpc", Aliases: []string{"protobuf", "protocol buffers"}},
	{Name: "microservices", Aliases: []string{"microservice", "micro-services"}},
	{Name: "machine learning", Aliases: []string{"ml"}, Resources: []string{"https://developers.google.com/machine-learning/crash-course"}},
	{Name: "deep learning", Aliases: []string{"neural networks"}},
	{Name: "nlp", Aliases: []string{"natural language processing"}},
	{Name: "llm", Aliases: []string{"llms", "large language models", "generative ai"}},
	{Name: "computer vision", Aliases: []string{"opencv"}},
	{Name: "testing", Aliases: []string{"unit testing", "tdd", "pytest", "jest"}},
}

var defaultDomains = []Domain{
	{Tag: "fintech", Keywords: []string{"finance", "financial", "banking", "payments", "trading"}},
	{Tag: "healthcare", Keywords: []string{"health", "medical", "clinical", "healthtech"}},
	{Tag: "e-commerce", Keywords: []string{"ecommerce", "retail", "marketplace", "online store"}},
	{Tag: "gaming", Keywords: []string{"game", "games", "game development"}},
	{Tag: "security", Keywords: []string{"cybersecurity", "infosec", "appsec"}},
	{Tag: "data", Keywords: []string{"data engineering", "data pipelines", "analytics", "big data", "etl"}},
	{Tag: "cloud", Keywords: []string{"cloud-native", "cloud infrastructure", "devops", "sre"}},
	{Tag: "ai", Keywords: []string{"artificial intelligence", "ai-powered"}},
	{Tag: "mobile", Keywords: []string{"ios", "android", "mobile apps"}},
	{Tag: "web", Keywords: []string{"web applications", "frontend", "front-end", "backend", "back-end", "full-stack", "fullstack"}},
	{Tag: "education", Keywords: []string{"edtech", "e-learning"}},
}

var defaultVocabulary = mustNew(defaultEntries, defaultDomains)

func mustNew(entries []Entry, domains []Domain) *Vocabulary {
	v, err := New(entries, domains)
	if err != nil {
		panic("skill: built-in vocabulary: " + err.Error())
	}
	return v
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	return defaultVocabulary
}
