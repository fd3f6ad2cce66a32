package config

// DefaultCollections is the built-in catalog used when the config lists none.
func DefaultCollections() []CollectionConfig {
	return []CollectionConfig{
		{
			ID:          "cs_ai_full",
			Name:        "Artificial Intelligence",
			Description: "general artificial intelligence research, AI systems, AI safety, ethics",
			Keywords:    []string{"artificial intelligence", "ai", "expert systems", "knowledge graph", "reasoning"},
		},
		{
			ID:          "ML_collection",
			Name:        "Machine Learning",
			Description: "machine learning algorithms, theory, supervised, unsupervised, reinforcement learning",
			Keywords: []string{
				"machine learning", "supervised learning", "unsupervised learning",
				"clustering", "classification", "regression",
			},
		},
		{
			ID:          "dl_collection",
			Name:        "Deep Learning",
			Description: "deep learning, neural networks, transformers, architectures, backpropagation",
			Keywords:    []string{"deep learning", "neural network", "cnn", "rnn", "transformer", "lstm", "backpropagation"},
		},
		{
			ID:          "cv_collection",
			Name:        "Computer Vision",
			Description: "computer vision, image processing, object detection, segmentation, video analysis",
			Keywords:    []string{"computer vision", "image processing", "object detection", "segmentation", "yolo", "ocr"},
		},
		{
			ID:          "nlp_collection",
			Name:        "Natural Language Processing",
			Description: "natural language processing, text mining, language models, translation, speech",
			Keywords: []string{
				"natural language processing", "nlp", "text mining", "bert", "gpt",
				"translation", "sentiment analysis",
			},
		},
		{
			ID:          "RL_collection",
			Name:        "Reinforcement Learning",
			Description: "reinforcement learning, robotics, control, agents, policy optimization",
			Keywords:    []string{"reinforcement learning", "rl", "q-learning", "policy gradient", "robotics", "agent"},
		},
		{
			ID:          "other_cs",
			Name:        "General Computer Science",
			Description: "computer science theory, systems, databases, security, networks, software engineering",
			Keywords:    []string{"database", "security", "network", "operating system", "software engineering"},
		},
	}
}
