// Copyright (c) Microsoft. All rights reserved.

// Package openai provides a [ChatClient] implementation for the OpenAI
// Chat Completions API, including Azure OpenAI deployments.
//
// Create a client and pass it to [agentframework.NewAgent]:
//
//	client := openai.New(os.Getenv("AZURE_OPENAI_API_KEY"),
//	    openai.WithAzureDeployment(endpoint, "gpt-4o", "2024-10-21"),
//	)
//
//	agent := agentframework.NewAgent(client)
//
// The client is stateless: conversation history is sent with every request,
// so agents built on it keep their sessions locally.
//
// # Configuration
//
//   - [WithModel]: set the default model
//   - [WithAzureDeployment]: target an Azure OpenAI deployment
//   - [WithAzureCredential]: use Entra ID tokens instead of an API key
//   - [WithBaseURL]: override the API endpoint
//   - [WithHTTPClient]: provide a custom http.Client
//   - [WithHeaders]: add custom headers to every request
//
// # Testing
//
// The client uses an unexported transport interface internally.
// For testing, provide a mock http.Client via [WithHTTPClient]
// with a custom RoundTripper.
package openai
