// Command chaincode runs the harvest certification registry as Fabric
// chaincode.
package main

import (
	"fmt"
	"os"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"harvestcert/internal/chaincode"
	"harvestcert/internal/platform/config"
	"harvestcert/internal/platform/logger"
)

func main() {
	level := os.Getenv("HARVESTCERT_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	log, err := logger.New(config.Log{Level: level, Format: "json"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	cc, err := contractapi.NewChaincode(chaincode.NewRegistryContract(log))
	if err != nil {
		log.Error("failed to create chaincode", "error", err)
		os.Exit(1)
	}
	if err := cc.Start(); err != nil {
		log.Error("chaincode stopped", "error", err)
		os.Exit(1)
	}
}
