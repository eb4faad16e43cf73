package main

import (
	"net/http"

	"github.com/storacha/grantlink/cmd/lambda"
	"github.com/storacha/grantlink/pkg/aws"
	"github.com/storacha/grantlink/pkg/server"
)

func main() {
	lambda.StartHTTPHandler(makeHandler)
}

func makeHandler(cfg aws.Config) (http.Handler, error) {
	service, err := aws.Construct(cfg)
	if err != nil {
		return nil, err
	}
	return server.NewServer(server.WithService(service)), nil
}
