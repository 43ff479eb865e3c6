// Package testutil provides shared testing utilities and fixtures
// This eliminates duplication across the package test files
package testutil

// Common fixtures used across multiple test files
const (
	// BasicAPISpec provides a minimal valid OpenAPI 3.0 spec with
	// response examples
	BasicAPISpec = `{
		"openapi": "3.0.0",
		"info": {
			"title": "Test API",
			"version": "1.0.0"
		},
		"paths": {
			"/users": {
				"get": {
					"responses": {
						"200": {
							"description": "Success",
							"content": {
								"application/json": {
									"example": [{"id": 1, "name": "Test User"}]
								}
							}
						}
					}
				},
				"post": {
					"responses": {
						"201": {
							"description": "Created",
							"content": {
								"application/json": {
									"example": {"id": 2, "name": "New User"}
								}
							}
						}
					}
				}
			},
			"/users/{id}": {
				"get": {
					"parameters": [
						{
							"name": "id",
							"in": "path",
							"required": true,
							"schema": {"type": "string"}
						}
					],
					"responses": {
						"200": {
							"description": "Success",
							"content": {
								"application/json": {
									"example": {"id": 1, "name": "Specific User"}
								}
							}
						}
					}
				}
			},
			"/health": {
				"get": {
					"responses": {
						"204": {
							"description": "No Content"
						}
					}
				}
			}
		}
	}`

	// TextAPISpec provides a spec whose example is plain text
	TextAPISpec = `{
		"openapi": "3.0.0",
		"info": {
			"title": "Text API",
			"version": "1.0.0"
		},
		"paths": {
			"/motd": {
				"get": {
					"responses": {
						"200": {
							"description": "Success",
							"content": {
								"text/plain": {
									"example": "hello there"
								}
							}
						}
					}
				}
			}
		}
	}`

	// BasicRules provides a small rule set covering the match modes
	BasicRules = `rules:
  - name: users
    priority: 10
    match:
      url: "*/users"
      methods: [GET]
    respond:
      status: 200
      headers:
        Content-Type: application/json
      body: '[{"id": 9}]'
  - name: catch-all-api
    priority: 1
    match:
      url: "https://api.example.com/*"
    respond:
      status: 404
      body: '{"error": "unknown"}'
`
)
