package main

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/crypto"
)

// Generates a fresh account for use as a custodian owner or deployment
// address. Run with: go run scripts/newaccount.go
func main() {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		log.Fatal("Failed to generate key:", err)
	}

	privateKeyHex := fmt.Sprintf("%x", crypto.FromECDSA(privateKey))
	fmt.Printf("Private Key: 0x%s\n", privateKeyHex)

	address := crypto.PubkeyToAddress(privateKey.PublicKey)
	fmt.Printf("Address: %s\n", address.Hex())
}
